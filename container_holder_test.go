package tagmanager

import (
	"fmt"
	"sync"
	"testing"
)

func TestContainerHolder_Empty(t *testing.T) {
	if NewContainerHolder().Get() != nil {
		t.Fatal("expected empty holder")
	}
}

func TestContainerHolder_ConcurrentReadsSeeWholeValues(t *testing.T) {
	h := NewContainerHolder()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			v := fmt.Sprint(i)
			h.Set(&Container{ID: "c" + v, Version: "v" + v})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				c := h.Get()
				if c == nil {
					continue
				}
				if "c"+c.Version[1:] != c.ID {
					t.Errorf("torn read: %+v", c)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := h.Get(); got == nil || got.ID != "c999" {
		t.Fatalf("expected last write, got %+v", got)
	}
}
