package adapters

import (
	"encoding/json"
	"testing"
)

func TestRecord_PreservesInsertionOrder(t *testing.T) {
	r := NewRecord("event", "interaction", "target", "button", "value", 3)

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"event":"interaction","target":"button","value":3}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}
}

func TestRecord_SetExistingKeyKeepsPosition(t *testing.T) {
	r := NewRecord("a", 1, "b", 2)
	r.Set("a", 10)

	keys := r.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("unexpected keys: %v", keys)
	}
	if v, _ := r.Get("a"); v != 10 {
		t.Fatalf("expected a=10, got %v", v)
	}
}

func TestRecord_UnmarshalKeepsOrderAndNesting(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"z":1,"a":{"y":true,"b":null},"m":[1,"x"]}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	keys := r.Keys()
	if len(keys) != 3 || keys[0] != "z" || keys[1] != "a" || keys[2] != "m" {
		t.Fatalf("unexpected keys: %v", keys)
	}
	nested, ok := r.values["a"].(Record)
	if !ok {
		t.Fatalf("expected nested Record, got %T", r.values["a"])
	}
	if nk := nested.Keys(); len(nk) != 2 || nk[0] != "y" || nk[1] != "b" {
		t.Fatalf("unexpected nested keys: %v", nk)
	}
	if n, ok := r.values["z"].(json.Number); !ok || n.String() != "1" {
		t.Fatalf("expected json.Number 1, got %#v", r.values["z"])
	}

	again, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(again) != `{"z":1,"a":{"y":true,"b":null},"m":[1,"x"]}` {
		t.Fatalf("order not preserved: %s", again)
	}
}

func TestRecord_EmptyObject(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty record, got %d keys", r.Len())
	}
	data, _ := json.Marshal(r)
	if string(data) != "{}" {
		t.Fatalf("expected {}, got %s", data)
	}
}

func TestRecord_UnmarshalRejectsNonObject(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`[1,2]`), &r); err == nil {
		t.Fatal("expected error for array input")
	}
}

func TestRecord_Range(t *testing.T) {
	r := NewRecord("a", 1, "b", 2, "c", 3)
	var seen []string
	r.Range(func(k string, _ any) bool {
		seen = append(seen, k)
		return k != "b"
	})
	if len(seen) != 2 {
		t.Fatalf("expected range to stop after b, saw %v", seen)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"":        LogLevelInfo,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
		"off":     LogLevelNone,
		"bogus":   LogLevelInfo,
	}
	for in, want := range cases {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	r := NewRecord("a", 1)
	c := r.Clone()
	c.Set("a", 2)
	c.Set("b", 3)
	r.Set("z", 26)

	if v, _ := r.Get("a"); v != 1 {
		t.Fatalf("expected original a=1, got %v", v)
	}
	if keys := r.Keys(); len(keys) != 2 || keys[1] != "z" {
		t.Fatalf("unexpected original keys: %v", keys)
	}
	if keys := c.Keys(); len(keys) != 2 || keys[1] != "b" {
		t.Fatalf("unexpected clone keys: %v", keys)
	}
	if _, ok := c.Get("z"); ok {
		t.Fatal("expected clone not to see keys set on the original")
	}
}
