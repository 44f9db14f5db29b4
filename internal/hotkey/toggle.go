// Package hotkey provides a global record/stop toggle using gohook.
package hotkey

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// Toggle listens for a global key combo and reports alternating
// start/stop presses on its channel: true for "start recording",
// false for "stop recording".
type Toggle struct {
	keys []string
	ch   chan bool
	done chan struct{}
	once sync.Once
}

// NewToggle creates a Toggle for the given key combo. keys should be
// lowercase key names (e.g., ["ctrl", "shift", "r"]).
func NewToggle(keys []string) *Toggle {
	return &Toggle{
		keys: keys,
		ch:   make(chan bool, 16),
		done: make(chan struct{}),
	}
}

// Presses returns the channel that receives alternating start(true)/
// stop(false) signals. The channel is closed when Stop is called.
func (t *Toggle) Presses() <-chan bool {
	return t.ch
}

// Start begins listening for the global hotkey. It blocks until Stop is
// called; run it in a goroutine.
func (t *Toggle) Start() {
	var mu sync.Mutex
	active := false

	hook.Register(hook.KeyDown, t.keys, func(e hook.Event) {
		mu.Lock()
		defer mu.Unlock()
		active = !active
		select {
		case t.ch <- active:
		default: // don't block the hook thread if the channel is full
		}
	})

	evChan := hook.Start()
	go func() {
		<-t.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(t.ch)
}

// Stop ends the listener and closes the press channel.
func (t *Toggle) Stop() {
	t.once.Do(func() { close(t.done) })
}
