package manager

import (
	"context"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/iotaledger/wallet.go/internal/sync"
)

// backgroundSyncer drives spec.md §4.6's start_background_syncing: a single
// ticker that, on every tick, syncs every account in index order, skipping
// (not queuing) a tick if the previous one is still running — the same
// lossy-backpressure rule spec.md §5 states for per-account background
// syncing, generalized to the whole manager.
type backgroundSyncer struct {
	m *Manager

	running int32
	stopCh  chan struct{}
	wg      stdsync.WaitGroup
}

func newBackgroundSyncer(m *Manager) *backgroundSyncer {
	return &backgroundSyncer{m: m}
}

// StartBackgroundSyncing spawns the manager-wide sync loop. Double-start is
// a no-op.
func (m *Manager) StartBackgroundSyncing(interval time.Duration, opts sync.Options) {
	if !atomic.CompareAndSwapInt32(&m.bg.running, 0, 1) {
		return
	}
	if interval <= 0 {
		interval = sync.BackgroundInterval
	}
	m.bg.stopCh = make(chan struct{})
	m.bg.wg.Add(1)
	go func() {
		defer m.bg.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var tickRunning int32
		for {
			select {
			case <-m.bg.stopCh:
				return
			case <-ticker.C:
				if !atomic.CompareAndSwapInt32(&tickRunning, 0, 1) {
					logger.Warnw("skipping background sync tick, previous tick still running")
					continue
				}
				func() {
					defer atomic.StoreInt32(&tickRunning, 0)
					m.syncAllAccounts(interval, opts)
				}()
			}
		}
	}()
}

// StopBackgroundSyncing stops a previously started loop and waits for the
// in-flight tick, if any, to finish.
func (m *Manager) StopBackgroundSyncing() {
	if !atomic.CompareAndSwapInt32(&m.bg.running, 1, 0) {
		return
	}
	close(m.bg.stopCh)
	m.bg.wg.Wait()
}

func (m *Manager) syncAllAccounts(timeout time.Duration, opts sync.Options) {
	for _, acc := range m.GetAccounts() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if _, err := m.Sync(ctx, acc.Index(), opts); err != nil {
			logger.Warnw("background sync pass failed", "accountIndex", acc.Index(), "err", err)
		}
		cancel()
	}
}
