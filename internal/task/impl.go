package task

import (
	"errors"
	"fmt"
	"time"
)

func (t *Task) addCallback(about string, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.callbacks == nil {
		t.callbacks = make(map[*Callback]struct{})
	}
	t.callbacks[&Callback{fn, about}] = struct{}{}
}

func (t *Task) addChildCount() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.children++
	if t.children == 1 {
		t.childrenDone = make(chan struct{})
	}
}

func (t *Task) subChildCount() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.children--
	switch t.children {
	case 0:
		close(t.childrenDone)
	case ^uint32(0):
		panic("negative child count")
	}
}

func (t *Task) runCallbacks() {
	t.mu.Lock()
	callbacks := t.callbacks
	t.callbacks = nil
	t.mu.Unlock()
	for c := range callbacks {
		t.invokeWithRecover(c.fn, c.about)
	}
}

func (t *Task) invokeWithRecover(fn func(), caller string) {
	defer func() {
		if err := recover(); err != nil {
			logger.Error().
				Str("task", t.name).
				Interface("err", err).
				Msg("panic in " + caller)
		}
	}()
	fn()
}

func waitWithTimeout(ch <-chan struct{}) bool {
	if ch == nil {
		return true
	}
	select {
	case <-ch:
		return true
	case <-time.After(taskTimeout):
		return false
	}
}

func fmtCause(cause any) error {
	switch cause := cause.(type) {
	case nil:
		return nil
	case error:
		return cause
	case string:
		return errors.New(cause)
	default:
		return fmt.Errorf("%v", cause)
	}
}
