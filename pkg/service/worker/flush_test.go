package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/logmirror/slacksheet/pkg/domain/model"
	"github.com/logmirror/slacksheet/pkg/service/worker"
	"github.com/logmirror/slacksheet/pkg/usecase"
	"github.com/m-mizutani/gt"
	"github.com/slack-go/slack/slackevents"
)

type countingFlusher struct {
	flushes int32
}

func (f *countingFlusher) FlushSpreadsheet(ctx context.Context, spreadsheet string, updates []*model.SheetUpdate) error {
	atomic.AddInt32(&f.flushes, 1)
	return nil
}

func TestFlushWorkerDrainsQueue(t *testing.T) {
	flusher := &countingFlusher{}
	q := usecase.NewPendingQueue(flusher, 10)

	u, err := model.NewSheetUpdate(&slackevents.MessageEvent{
		Type: "message", Channel: "C1", User: "U1",
		Text: "pending", TimeStamp: "1610000000.000100",
	})
	gt.NoError(t, err).Required()
	q.Enqueue("mirror", u)

	w := worker.NewFlushWorker(q, 10*time.Millisecond)
	w.Start(t.Context())
	defer w.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&flusher.flushes) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	gt.Value(t, atomic.LoadInt32(&flusher.flushes)).Equal(int32(1))
	gt.Value(t, q.Len()).Equal(0)
}

func TestFlushWorkerStops(t *testing.T) {
	q := usecase.NewPendingQueue(&countingFlusher{}, 10)
	w := worker.NewFlushWorker(q, time.Hour)

	w.Start(t.Context())
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
