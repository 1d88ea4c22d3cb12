package tagmanager

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/Tap30/tagmanager-go/adapters"
)

// Positional arguments arrive loosely typed from the scripting side, usually
// decoded from a JSON array. The helpers below coerce them the same way a
// JSON array accessor would: scalars stringify, numeric strings parse.

func argAt(args []any, i int) (any, error) {
	if i < 0 || i >= len(args) {
		return nil, &ArgumentError{Index: i, Reason: "not found"}
	}
	return args[i], nil
}

func argString(args []any, i int) (string, error) {
	v, err := argAt(args, i)
	if err != nil {
		return "", err
	}
	s, ok := coerceString(v)
	if !ok {
		return "", &ArgumentError{Index: i, Reason: fmt.Sprintf("is not a string (%T)", v)}
	}
	return s, nil
}

func coerceString(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "null", true
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool, int, int32, int64:
		return fmt.Sprint(s), true
	default:
		return "", false
	}
}

func argInt(args []any, i int) (int, error) {
	v, err := argAt(args, i)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return floatToInt(i, n)
	case json.Number:
		return parseIntString(i, n.String())
	case string:
		return parseIntString(i, n)
	default:
		return 0, &ArgumentError{Index: i, Reason: "is not a number"}
	}
}

func parseIntString(i int, s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ArgumentError{Index: i, Reason: "is not a number"}
	}
	return floatToInt(i, f)
}

func floatToInt(i int, f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, &ArgumentError{Index: i, Reason: "is out of range"}
	}
	return int(f), nil
}

func argObject(args []any, i int) (Record, error) {
	v, err := argAt(args, i)
	if err != nil {
		return Record{}, err
	}
	switch o := v.(type) {
	case adapters.Record:
		return o, nil
	case map[string]any:
		return recordFromMap(o), nil
	case json.RawMessage:
		var r Record
		if err := json.Unmarshal(o, &r); err != nil {
			return Record{}, &ArgumentError{Index: i, Reason: "is not an object"}
		}
		return r, nil
	default:
		return Record{}, &ArgumentError{Index: i, Reason: "is not an object"}
	}
}

// recordFromMap copies a plain map into a Record. Go maps carry no order,
// so keys are added in sorted order to keep the result deterministic.
func recordFromMap(m map[string]any) Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	r := Record{}
	for _, k := range keys {
		r.Set(k, m[k])
	}
	return r
}
