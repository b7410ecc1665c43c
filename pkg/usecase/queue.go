package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/logmirror/slacksheet/pkg/domain/model"
	"github.com/logmirror/slacksheet/pkg/domain/types"
	"github.com/logmirror/slacksheet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultMaxPendingWrites is the pending-update threshold above which the
// queue flushes all spreadsheets.
const DefaultMaxPendingWrites = 10

// SpreadsheetFlusher applies a batch of queued updates to one spreadsheet
type SpreadsheetFlusher interface {
	FlushSpreadsheet(ctx context.Context, spreadsheet string, updates []*model.SheetUpdate) error
}

// SpreadsheetFlusherFunc adapts a function to SpreadsheetFlusher
type SpreadsheetFlusherFunc func(ctx context.Context, spreadsheet string, updates []*model.SheetUpdate) error

func (f SpreadsheetFlusherFunc) FlushSpreadsheet(ctx context.Context, spreadsheet string, updates []*model.SheetUpdate) error {
	return f(ctx, spreadsheet, updates)
}

// PendingQueue accumulates sheet updates per target spreadsheet,
// independent of transport timing. Enqueue is a pure in-memory append; the
// flusher's remote calls always run outside the queue lock.
type PendingQueue struct {
	flusher    SpreadsheetFlusher
	maxPending int

	mu      sync.Mutex
	pending map[string][]*model.SheetUpdate
	order   []string // spreadsheets in first-enqueue order
}

// NewPendingQueue creates a queue flushing through flusher once the total
// pending count exceeds maxPending (DefaultMaxPendingWrites when <= 0).
func NewPendingQueue(flusher SpreadsheetFlusher, maxPending int) *PendingQueue {
	if maxPending <= 0 {
		maxPending = DefaultMaxPendingWrites
	}
	return &PendingQueue{
		flusher:    flusher,
		maxPending: maxPending,
		pending:    make(map[string][]*model.SheetUpdate),
	}
}

// Enqueue appends an update to the spreadsheet's pending list. Never fails.
func (q *PendingQueue) Enqueue(spreadsheet string, update *model.SheetUpdate) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[spreadsheet]; !ok {
		q.order = append(q.order, spreadsheet)
	}
	q.pending[spreadsheet] = append(q.pending[spreadsheet], update)
}

// Len returns the total pending update count across all spreadsheets
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	total := 0
	for _, updates := range q.pending {
		total += len(updates)
	}
	return total
}

// FlushIfOverThreshold flushes all spreadsheets when the total pending
// count exceeds the configured threshold.
func (q *PendingQueue) FlushIfOverThreshold(ctx context.Context) error {
	if q.Len() <= q.maxPending {
		return nil
	}
	return q.FlushAll(ctx)
}

// FlushAll unconditionally flushes every spreadsheet with pending updates.
// A spreadsheet's batch is removed from the queue whether its flush
// succeeds or fails: there is no retry queue, upstream webhook redelivery
// is the recovery path. Flush errors are logged and propagated, and one
// failing spreadsheet does not block the others.
func (q *PendingQueue) FlushAll(ctx context.Context) error {
	logger := logging.From(ctx)

	var errs []error
	for {
		q.mu.Lock()
		if len(q.order) == 0 {
			q.mu.Unlock()
			break
		}
		spreadsheet := q.order[0]
		q.order = q.order[1:]
		updates := q.pending[spreadsheet]
		delete(q.pending, spreadsheet)
		q.mu.Unlock()

		if len(updates) == 0 {
			continue
		}

		if err := q.flusher.FlushSpreadsheet(ctx, spreadsheet, updates); err != nil {
			logger.Error("failed to flush pending updates, batch dropped",
				"spreadsheet", spreadsheet,
				"updates", len(updates),
				"error", err.Error(),
			)
			errs = append(errs, goerr.Wrap(err, "flush failed",
				goerr.V(types.SpreadsheetKey, spreadsheet)))
			continue
		}

		logger.Info("flushed pending updates",
			"spreadsheet", spreadsheet,
			"updates", len(updates),
		)
	}

	return errors.Join(errs...)
}
