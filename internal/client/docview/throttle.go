package docview

import (
	"sync"
	"time"
)

// throttle вызывает fire не чаще раза в window: сразу на первом сигнале
// и еще раз в конце окна, если за окно были новые сигналы.
type throttle struct {
	last    time.Time
	now     func() time.Time
	fire    func()
	timer   *time.Timer
	window  time.Duration
	mu      sync.Mutex
	wg      sync.WaitGroup
	pending bool
	stopped bool
}

func newThrottle(window time.Duration, now func() time.Time, fire func()) *throttle {
	return &throttle{
		window: window,
		now:    now,
		fire:   fire,
	}
}

func (t *throttle) trigger() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}

	now := t.now()
	elapsed := now.Sub(t.last)
	if t.timer == nil && (t.last.IsZero() || elapsed >= t.window) {
		t.last = now
		t.wg.Add(1)
		t.mu.Unlock()

		defer t.wg.Done()
		t.fire()
		return
	}

	t.pending = true
	if t.timer == nil {
		t.timer = time.AfterFunc(t.window-elapsed, t.onTimer)
	}
	t.mu.Unlock()
}

func (t *throttle) onTimer() {
	t.mu.Lock()
	t.timer = nil
	if t.stopped || !t.pending {
		t.mu.Unlock()
		return
	}
	t.pending = false
	t.last = t.now()
	t.wg.Add(1)
	t.mu.Unlock()

	defer t.wg.Done()
	t.fire()
}

// stop отменяет отложенный вызов и ждет завершения текущего.
func (t *throttle) stop() {
	t.mu.Lock()
	t.stopped = true
	t.pending = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	t.wg.Wait()
}
