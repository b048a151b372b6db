package cmdpool

import "testing"

func TestNewRejectsNonPositiveFramesInFlight(t *testing.T) {
	if _, err := New(nil, 0); err == nil {
		t.Error("expected an error for framesInFlight == 0")
	}
	if _, err := New(nil, -1); err == nil {
		t.Error("expected an error for a negative framesInFlight")
	}
}
