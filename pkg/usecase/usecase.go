package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/logmirror/slacksheet/pkg/domain/interfaces"
	"github.com/logmirror/slacksheet/pkg/domain/model"
	"github.com/logmirror/slacksheet/pkg/domain/types"
	"github.com/logmirror/slacksheet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack/slackevents"
)

// MessageWorksheetName is the worksheet all messages land in when
// per-channel worksheets are disabled.
const MessageWorksheetName = "ALL_MESSAGES"

// UseCases owns the process-wide mirror state: the pending update queue
// and the user directory cache. One instance is created at startup and
// shared by all request-handling contexts.
type UseCases struct {
	Queue     *PendingQueue
	Directory *UserDirectory

	sync  *Synchronizer
	store interfaces.CacheStore

	spreadsheetName string
	worksheetName   string
	perChannel      bool
	watchedChannels map[types.ChannelID]bool

	layout     model.Layout
	loc        *time.Location
	maxPending int
}

type Option func(*UseCases)

// WithSpreadsheetName sets the target spreadsheet document name
func WithSpreadsheetName(name string) Option {
	return func(uc *UseCases) {
		uc.spreadsheetName = name
	}
}

// WithWorksheetName sets the fixed worksheet all messages are written to
func WithWorksheetName(name string) Option {
	return func(uc *UseCases) {
		uc.worksheetName = name
	}
}

// WithPerChannelWorksheets routes each message to a worksheet named after
// its channel instead of the fixed worksheet.
func WithPerChannelWorksheets(enabled bool) Option {
	return func(uc *UseCases) {
		uc.perChannel = enabled
	}
}

// WithWatchedChannels sets the channel allow-list. An empty list watches
// every channel.
func WithWatchedChannels(channels []string) Option {
	return func(uc *UseCases) {
		if len(channels) == 0 {
			uc.watchedChannels = nil
			return
		}
		uc.watchedChannels = make(map[types.ChannelID]bool, len(channels))
		for _, ch := range channels {
			uc.watchedChannels[types.ChannelID(ch)] = true
		}
	}
}

// WithLayout sets the worksheet column layout
func WithLayout(layout model.Layout) Option {
	return func(uc *UseCases) {
		uc.layout = layout
	}
}

// WithDisplayTimezone sets the timezone used to render timestamps
func WithDisplayTimezone(loc *time.Location) Option {
	return func(uc *UseCases) {
		uc.loc = loc
	}
}

// WithMaxPendingWrites overrides the queue flush threshold
func WithMaxPendingWrites(n int) Option {
	return func(uc *UseCases) {
		uc.maxPending = n
	}
}

// New wires the queue, directory and synchronizer
func New(client interfaces.SheetsClient, source interfaces.UserSource, store interfaces.CacheStore, opts ...Option) *UseCases {
	uc := &UseCases{
		store:         store,
		worksheetName: MessageWorksheetName,
		layout:        model.DefaultLayout(),
		loc:           time.UTC,
	}
	for _, opt := range opts {
		opt(uc)
	}

	uc.Directory = NewUserDirectory(source, store)
	uc.sync = NewSynchronizer(client, uc.Directory, uc.layout, uc.loc)
	uc.Queue = NewPendingQueue(SpreadsheetFlusherFunc(uc.FlushSpreadsheet), uc.maxPending)

	return uc
}

// HandleMessageEvent classifies an inbound message event and enqueues the
// resulting sheet update, flushing when the pending threshold is exceeded.
// Rejected events (unsupported subtype, malformed payload, unwatched
// channel) are logged and swallowed: the webhook was already acknowledged
// and redelivery would not help.
func (uc *UseCases) HandleMessageEvent(ctx context.Context, ev *slackevents.MessageEvent) error {
	logger := logging.From(ctx)

	if ev != nil && !uc.watched(types.ChannelID(ev.Channel)) {
		logger.Debug("channel not watched, ignoring event", "channel", ev.Channel)
		return nil
	}

	update, err := model.NewSheetUpdate(ev)
	if err != nil {
		if errors.Is(err, types.ErrUnsupportedEvent) || errors.Is(err, types.ErrMalformedEvent) {
			logger.Warn("rejected slack event", "error", err.Error())
			return nil
		}
		return goerr.Wrap(err, "failed to build sheet update")
	}

	uc.Queue.Enqueue(uc.spreadsheetName, update)
	logger.Debug("sheet update queued",
		"kind", update.Kind().String(),
		"message_id", update.MessageID(),
		"pending", uc.Queue.Len(),
	)

	return uc.Queue.FlushIfOverThreshold(ctx)
}

// FlushSpreadsheet applies one spreadsheet's queued updates, grouped by
// target worksheet in first-arrival order.
func (uc *UseCases) FlushSpreadsheet(ctx context.Context, spreadsheet string, updates []*model.SheetUpdate) error {
	ctx = logging.With(ctx, logging.From(ctx).With("flush_cycle", uuid.NewString()))

	grouped := make(map[string][]*model.SheetUpdate)
	var order []string
	for _, u := range updates {
		ws := uc.worksheetFor(u)
		if _, ok := grouped[ws]; !ok {
			order = append(order, ws)
		}
		grouped[ws] = append(grouped[ws], u)
	}

	var errs []error
	for _, ws := range order {
		if err := uc.sync.ApplyUpdates(ctx, spreadsheet, ws, grouped[ws]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown flushes all pending updates and persists the user cache. Called
// once at process teardown.
func (uc *UseCases) Shutdown(ctx context.Context) error {
	var errs []error

	if err := uc.Queue.FlushAll(ctx); err != nil {
		errs = append(errs, goerr.Wrap(err, "final flush failed"))
	}
	if err := uc.Directory.Persist(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := uc.store.Close(); err != nil {
		errs = append(errs, goerr.Wrap(err, "failed to close cache store"))
	}

	return errors.Join(errs...)
}

func (uc *UseCases) worksheetFor(u *model.SheetUpdate) string {
	if uc.perChannel {
		return string(u.ChannelID())
	}
	return uc.worksheetName
}

func (uc *UseCases) watched(ch types.ChannelID) bool {
	if uc.watchedChannels == nil {
		return true
	}
	return uc.watchedChannels[ch]
}
