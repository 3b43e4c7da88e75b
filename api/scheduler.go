/*
scheduler.go - Automated billing scheduler

PURPOSE:
  Periodically scans for tenancies whose billing anniversary has arrived
  and generates their invoices, then persists the overdue derivation for
  invoices and utility bills past their due dates.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Skips tenancies that are not billable or not yet due
  - The per-month idempotency check and the conditional cycle advance
    make a pass safe to repeat or to race with a manual trigger
  - A lost race surfaces as a client-typed error and is counted as skipped

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewBillingScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunBilling endpoint (manual trigger)
  - invoice/lifecycle.go: Manager.GenerateAnniversary, Manager.SweepOverdue
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/roomstay/billing-engine/billing"
	"github.com/roomstay/billing-engine/invoice"
	"github.com/roomstay/billing-engine/utility"
)

// BillingScheduler handles automated anniversary billing and overdue sweeps.
type BillingScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewBillingScheduler creates a new scheduler.
func NewBillingScheduler(handler *Handler) *BillingScheduler {
	return &BillingScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (bs *BillingScheduler) Start() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if !bs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	bs.ticker = time.NewTicker(bs.CheckInterval)
	bs.wg.Add(1)

	go bs.run()

	log.Printf("[Scheduler] Started with check interval: %v", bs.CheckInterval)
}

// Stop stops the scheduler.
func (bs *BillingScheduler) Stop() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.ticker != nil {
		bs.ticker.Stop()
		close(bs.stop)
		bs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (bs *BillingScheduler) run() {
	defer bs.wg.Done()

	// Run immediately on start
	bs.checkAndProcess()

	for {
		select {
		case <-bs.ticker.C:
			bs.checkAndProcess()
		case <-bs.stop:
			return
		}
	}
}

func (bs *BillingScheduler) checkAndProcess() {
	ctx := context.Background()
	asOf := billing.Today()

	log.Printf("[Scheduler] Running billing pass as of %s", asOf)

	tenancies, err := bs.Handler.Tenancies.ListTenancies(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing tenancies: %v", err)
		return
	}

	generated := 0
	skipped := 0

	for _, t := range tenancies {
		if !t.IsBillable() || !billing.IsDue(t, asOf) {
			continue
		}

		inv, err := bs.Handler.Manager.GenerateAnniversary(ctx, t.ID, invoice.SourceAnniversary, asOf)
		if err != nil {
			// Already billed this month, or a manual run won the race.
			if billing.IsClientError(err) || billing.IsRetryable(err) {
				skipped++
				continue
			}
			log.Printf("[Scheduler] Error billing tenancy %s: %v", t.ID, err)
			continue
		}
		log.Printf("[Scheduler] Generated invoice %s for tenancy %s (%s)", inv.Number, t.ID, inv.Amount)
		generated++
	}

	moved, err := bs.Handler.Manager.SweepOverdue(ctx, asOf)
	if err != nil {
		log.Printf("[Scheduler] Error sweeping overdue invoices: %v", err)
	}

	billsMoved, err := utility.SweepOverdue(ctx, bs.Handler.Bills, asOf)
	if err != nil {
		log.Printf("[Scheduler] Error sweeping overdue utility bills: %v", err)
	}

	if generated > 0 || skipped > 0 || moved > 0 || billsMoved > 0 {
		log.Printf("[Scheduler] Completed: %d generated, %d skipped, %d invoices overdue, %d bills overdue",
			generated, skipped, moved, billsMoved)
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (bs *BillingScheduler) RunNow() {
	bs.checkAndProcess()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (bs *BillingScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(bs.CheckInterval)
}
