/*
scheduler.go - Automated accrual sweep scheduler

PURPOSE:
  Periodically reconciles every accruing investment so ledger entries
  appear without waiting for a client to call the reconcile endpoint.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Sweeps active and withdrawal_notice investments only
  - Reconciliation itself is idempotent, so overlapping sweeps are safe
  - Honors the service's time-machine override through svc.Reconcile

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewAccrualScheduler(svc, store)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ReconcileInvestment endpoint (manual reconciliation)
  - engine/reconcile.go: LedgerReconciler
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robertventures/investor-desk-engine/engine"
)

// AccrualScheduler brings ledgers up to date on a timer.
type AccrualScheduler struct {
	Service       *engine.Service
	Store         engine.Store
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAccrualScheduler creates a new scheduler.
func NewAccrualScheduler(svc *engine.Service, store engine.Store) *AccrualScheduler {
	return &AccrualScheduler{
		Service:       svc,
		Store:         store,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (as *AccrualScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.wg.Add(1)

	go as.run()

	log.Printf("[Scheduler] Started with check interval: %v", as.CheckInterval)
}

// Stop stops the scheduler.
func (as *AccrualScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		close(as.stop)
		as.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (as *AccrualScheduler) run() {
	defer as.wg.Done()

	// Run immediately on start
	as.sweep()

	for {
		select {
		case <-as.ticker.C:
			as.sweep()
		case <-as.stop:
			return
		}
	}
}

func (as *AccrualScheduler) sweep() {
	ctx := context.Background()
	now := as.Service.Clock().Now()

	log.Printf("[Scheduler] Reconciling accruing investments at %v", now)

	accruing, err := as.Store.ListInvestmentsByStatus(ctx,
		engine.StatusActive, engine.StatusWithdrawalNotice)
	if err != nil {
		log.Printf("[Scheduler] Error listing accruing investments: %v", err)
		return
	}

	written := 0
	failed := 0
	for _, inv := range accruing {
		entries, err := as.Service.Reconcile(ctx, inv.ID, time.Time{})
		if err != nil {
			log.Printf("[Scheduler] Error reconciling %s: %v", inv.ID, err)
			failed++
			continue
		}
		written += len(entries)
	}

	if written > 0 || failed > 0 {
		log.Printf("[Scheduler] Completed: %d entries written across %d investments, %d failed",
			written, len(accruing), failed)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (as *AccrualScheduler) RunNow() {
	as.sweep()
}
