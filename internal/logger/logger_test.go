package logger

import "testing"

func TestNew(t *testing.T) {
	for _, debug := range []bool{true, false} {
		l, err := New(debug)
		if err != nil {
			t.Fatalf("New(%v): %v", debug, err)
		}
		l.Info("hello")
	}
	if OrNop(nil) == nil {
		t.Fatalf("OrNop must never return nil")
	}
}
