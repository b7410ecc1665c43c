package usecase_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/logmirror/slacksheet/pkg/domain/model"
	"github.com/logmirror/slacksheet/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/slack-go/slack/slackevents"
)

func newUpdate(t *testing.T, ts string) *model.SheetUpdate {
	t.Helper()
	u, err := model.NewSheetUpdate(&slackevents.MessageEvent{
		Type:      "message",
		Channel:   "C1",
		User:      "U1",
		Text:      "msg",
		TimeStamp: ts,
	})
	gt.NoError(t, err).Required()
	return u
}

type recordingFlusher struct {
	calls []struct {
		spreadsheet string
		count       int
	}
	err error
}

func (f *recordingFlusher) FlushSpreadsheet(ctx context.Context, spreadsheet string, updates []*model.SheetUpdate) error {
	f.calls = append(f.calls, struct {
		spreadsheet string
		count       int
	}{spreadsheet, len(updates)})
	return f.err
}

func TestQueueFlushThreshold(t *testing.T) {
	flusher := &recordingFlusher{}
	q := usecase.NewPendingQueue(flusher, 10)
	ctx := t.Context()

	// Ten pending writes stay queued
	for i := 0; i < 10; i++ {
		q.Enqueue("sheet", newUpdate(t, fmt.Sprintf("1610000000.%06d", i)))
		gt.NoError(t, q.FlushIfOverThreshold(ctx))
	}
	gt.Value(t, q.Len()).Equal(10)
	gt.Array(t, flusher.calls).Length(0)

	// The eleventh pushes the count over the threshold
	q.Enqueue("sheet", newUpdate(t, "1610000000.000110"))
	gt.NoError(t, q.FlushIfOverThreshold(ctx))

	gt.Value(t, q.Len()).Equal(0)
	gt.Array(t, flusher.calls).Length(1)
	gt.Value(t, flusher.calls[0].count).Equal(11)
}

func TestQueueFlushAllPerSpreadsheet(t *testing.T) {
	flusher := &recordingFlusher{}
	q := usecase.NewPendingQueue(flusher, 10)

	q.Enqueue("alpha", newUpdate(t, "1610000000.000100"))
	q.Enqueue("beta", newUpdate(t, "1610000000.000200"))
	q.Enqueue("alpha", newUpdate(t, "1610000000.000300"))
	gt.Value(t, q.Len()).Equal(3)

	gt.NoError(t, q.FlushAll(t.Context()))
	gt.Value(t, q.Len()).Equal(0)

	gt.Array(t, flusher.calls).Length(2)
	gt.Value(t, flusher.calls[0].spreadsheet).Equal("alpha")
	gt.Value(t, flusher.calls[0].count).Equal(2)
	gt.Value(t, flusher.calls[1].spreadsheet).Equal("beta")
	gt.Value(t, flusher.calls[1].count).Equal(1)
}

func TestQueueFlushFailureDropsBatch(t *testing.T) {
	flusher := &recordingFlusher{err: goerr.New("sheets unavailable")}
	q := usecase.NewPendingQueue(flusher, 10)

	q.Enqueue("sheet", newUpdate(t, "1610000000.000100"))

	err := q.FlushAll(t.Context())
	if err == nil {
		t.Fatal("expected flush error to propagate")
	}

	// The batch is gone: there is no retry queue
	gt.Value(t, q.Len()).Equal(0)
	gt.Array(t, flusher.calls).Length(1)
}

func TestQueueDefaultThreshold(t *testing.T) {
	flusher := &recordingFlusher{}
	q := usecase.NewPendingQueue(flusher, 0)
	ctx := t.Context()

	for i := 0; i < usecase.DefaultMaxPendingWrites; i++ {
		q.Enqueue("sheet", newUpdate(t, "1610000000.000100"))
		gt.NoError(t, q.FlushIfOverThreshold(ctx))
	}
	gt.Array(t, flusher.calls).Length(0)

	q.Enqueue("sheet", newUpdate(t, "1610000000.000100"))
	gt.NoError(t, q.FlushIfOverThreshold(ctx))
	gt.Array(t, flusher.calls).Length(1)
}
