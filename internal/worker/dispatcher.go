package worker

import (
	"context"
	"time"

	"github.com/queuectl/queuectl/internal/domain"
)

// Dispatcher selects the next eligible job under the priority, FIFO, and
// schedule ordering and hands ownership to the caller. It first promotes
// failed jobs whose retry time has passed, so the claim itself only ever
// considers pending rows.
type Dispatcher struct {
	store Store
}

// NewDispatcher builds a dispatcher over the given store.
func NewDispatcher(store Store) *Dispatcher {
	return &Dispatcher{store: store}
}

// Next returns a claimed job snapshot, or nil when nothing is eligible. A
// returned job is owned by the caller until it is finalized or reaped.
func (d *Dispatcher) Next(ctx context.Context, now time.Time) (*domain.Job, error) {
	if _, err := d.store.PromoteDue(ctx, now); err != nil {
		return nil, err
	}
	return d.store.ClaimNext(ctx, now)
}
