package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/PachudermPack/UniMacro/internal/core/macro"
)

// Timer is a periodic registration. Stop is idempotent and returns only once
// no callback is running.
type Timer interface {
	Stop()
}

type Scheduler interface {
	Every(interval time.Duration, fn func()) (Timer, error)
}

// TickerScheduler runs each registration on its own goroutine driven by a
// time.Ticker.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) (Timer, error) {
	if fn == nil {
		return nil, fmt.Errorf("scheduler: nil callback")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler: invalid interval %v", interval)
	}
	if interval < macro.MinTick {
		interval = macro.MinTick
	}

	t := &tickerTimer{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go t.run(fn)
	return t, nil
}

type tickerTimer struct {
	ticker   *time.Ticker
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

func (t *tickerTimer) run(fn func()) {
	defer close(t.exited)
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

func (t *tickerTimer) Stop() {
	t.stopOnce.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
	<-t.exited
}
