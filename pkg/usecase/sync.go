package usecase

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/logmirror/slacksheet/pkg/domain/interfaces"
	"github.com/logmirror/slacksheet/pkg/domain/model"
	"github.com/logmirror/slacksheet/pkg/domain/types"
	"github.com/logmirror/slacksheet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Synchronizer applies queued sheet updates against remote worksheet
// state. Spreadsheet and worksheet failures are fatal to the flush cycle;
// everything below that is contained per update so one bad update never
// blocks the rest of the batch.
type Synchronizer struct {
	client    interfaces.SheetsClient
	directory *UserDirectory
	layout    model.Layout
	loc       *time.Location
}

func NewSynchronizer(client interfaces.SheetsClient, directory *UserDirectory, layout model.Layout, loc *time.Location) *Synchronizer {
	return &Synchronizer{
		client:    client,
		directory: directory,
		layout:    layout,
		loc:       loc,
	}
}

// ApplyUpdates opens the spreadsheet, ensures the target worksheet and its
// header row, then applies every update in arrival order.
func (s *Synchronizer) ApplyUpdates(ctx context.Context, spreadsheet, worksheet string, updates []*model.SheetUpdate) error {
	logger := logging.From(ctx)

	ss, err := s.client.OpenSpreadsheet(ctx, spreadsheet)
	if err != nil {
		return goerr.Wrap(err, "cannot open spreadsheet, spreadsheets are provisioned out of band",
			goerr.V(types.SpreadsheetKey, spreadsheet))
	}

	ws, err := ss.Worksheet(ctx, worksheet)
	if errors.Is(err, types.ErrWorksheetNotFound) {
		logger.Info("worksheet does not exist, creating",
			"spreadsheet", spreadsheet, "worksheet", worksheet)
		ws, err = ss.AddWorksheet(ctx, worksheet, 1, int64(s.layout.Len()))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to open worksheet",
			goerr.V(types.SpreadsheetKey, spreadsheet), goerr.V(types.WorksheetKey, worksheet))
	}

	if err := s.normalizeHeaders(ctx, ws); err != nil {
		return goerr.Wrap(err, "failed to normalize worksheet headers",
			goerr.V(types.WorksheetKey, worksheet))
	}

	for _, u := range updates {
		if err := s.applyUpdate(ctx, ws, u); err != nil {
			// Per-update containment: log and keep going
			logger.Error("failed to apply sheet update",
				"kind", u.Kind().String(),
				"message_id", u.MessageID(),
				"worksheet", worksheet,
				"error", err.Error(),
			)
		}
	}

	return nil
}

// normalizeHeaders guarantees that row 1 equals the layout's header
// sequence and that row 2 exists as an insertion point. An already
// canonical, non-empty worksheet is left untouched.
func (s *Synchronizer) normalizeHeaders(ctx context.Context, ws interfaces.Worksheet) error {
	logger := logging.From(ctx)

	headers, err := ws.RowValues(ctx, 1)
	if err != nil {
		return err
	}
	want := s.layout.Headers()

	if !slices.Equal(headers, want) {
		// Malformed header row: drop it and rewrite. Shifting pre-existing
		// data into the canonical column order is out of scope.
		if len(headers) > 0 {
			logger.Warn("worksheet header mismatch, repairing",
				"worksheet", ws.Title(), "found", headers)
			if err := ws.DeleteRow(ctx, 1); err != nil {
				return err
			}
		}
		return ws.InsertRow(ctx, 1, want)
	}

	rows, err := ws.RowCount(ctx)
	if err != nil {
		return err
	}
	if rows <= 1 {
		// Guarantee that inserts at row 2 always land below the header
		return ws.InsertRow(ctx, 2, nil)
	}

	return nil
}

func (s *Synchronizer) applyUpdate(ctx context.Context, ws interfaces.Worksheet, u *model.SheetUpdate) error {
	switch u.Kind() {
	case model.UpdateNew:
		return s.applyNew(ctx, ws, u)
	case model.UpdateEdit:
		return s.applyEdit(ctx, ws, u)
	case model.UpdateDelete:
		return s.applyDelete(ctx, ws, u)
	case model.UpdateReply:
		// Placeholder: reply mirroring is not implemented
		logging.From(ctx).Warn("reply updates are not implemented, skipping",
			"message_id", u.MessageID())
		return nil
	default:
		return goerr.New("unhandled update kind", goerr.V("kind", int(u.Kind())))
	}
}

func (s *Synchronizer) applyNew(ctx context.Context, ws interfaces.Worksheet, u *model.SheetUpdate) error {
	logger := logging.From(ctx)

	displayName, err := s.directory.ResolveDisplayName(ctx, u.UserID())
	if err != nil {
		// Degrade to the raw user ID rather than dropping the message
		logger.Warn("failed to resolve display name, using raw user ID",
			"user_id", u.UserID(), "error", err.Error())
		displayName = string(u.UserID())
	}

	row := u.Row(s.layout, displayName, s.loc)
	if err := ws.InsertRow(ctx, 2, row); err != nil {
		return err
	}

	logger.Info("message row added",
		"message_id", u.MessageID(), "username", displayName)
	return nil
}

func (s *Synchronizer) applyEdit(ctx context.Context, ws interfaces.Worksheet, u *model.SheetUpdate) error {
	logger := logging.From(ctx)

	row, ok := s.locateRow(ctx, ws, u)
	if !ok {
		return nil
	}

	if err := ws.UpdateCell(ctx, row, s.layout.IndexOf(model.ColumnMessage), u.Text()); err != nil {
		return err
	}
	edited := u.EditedAt().In(s.loc).Format(time.RFC3339)
	if err := ws.UpdateCell(ctx, row, s.layout.IndexOf(s.layout.EditedColumn()), edited); err != nil {
		return err
	}

	logger.Info("message row edited", "message_id", u.MessageID(), "row", row)
	return nil
}

func (s *Synchronizer) applyDelete(ctx context.Context, ws interfaces.Worksheet, u *model.SheetUpdate) error {
	logger := logging.From(ctx)

	row, ok := s.locateRow(ctx, ws, u)
	if !ok {
		return nil
	}

	if err := ws.DeleteRow(ctx, row); err != nil {
		return err
	}

	logger.Info("message row deleted", "message_id", u.MessageID(), "row", row)
	return nil
}

// locateRow searches the correlation column for the update's key. Zero or
// multiple matches are surfaced as warnings and skipped, never guessed.
func (s *Synchronizer) locateRow(ctx context.Context, ws interfaces.Worksheet, u *model.SheetUpdate) (int64, bool) {
	logger := logging.From(ctx)

	col := s.layout.IndexOf(s.layout.CorrelationColumn())
	key := u.CorrelationValue(s.layout)

	rows, err := ws.FindRows(ctx, col, key)
	if err != nil {
		logger.Error("failed to search for existing row",
			"message_id", u.MessageID(), "error", err.Error())
		return 0, false
	}

	switch len(rows) {
	case 1:
		return rows[0], true
	case 0:
		logger.Warn("original message not found in sheet, skipping",
			"kind", u.Kind().String(), "message_id", u.MessageID())
		return 0, false
	default:
		logger.Warn("multiple rows match the message key, skipping",
			"kind", u.Kind().String(), "message_id", u.MessageID(), "matches", len(rows))
		return 0, false
	}
}
