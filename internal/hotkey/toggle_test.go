package hotkey

import "testing"

func TestStopIsIdempotent(t *testing.T) {
	tg := NewToggle([]string{"ctrl", "shift", "r"})
	tg.Stop()
	tg.Stop() // second call must not panic
}

func TestPressesChannelIsBuffered(t *testing.T) {
	tg := NewToggle([]string{"ctrl", "shift", "r"})
	select {
	case tg.ch <- true:
	default:
		t.Fatal("press channel should accept a send without a receiver")
	}
	if got := <-tg.Presses(); !got {
		t.Error("expected start signal")
	}
}
