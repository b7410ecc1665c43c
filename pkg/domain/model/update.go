package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/logmirror/slacksheet/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack/slackevents"
)

// UpdateKind tags the four possible sheet mutations. The set is closed:
// dispatch sites switch exhaustively and fail loudly on anything else.
type UpdateKind int

const (
	UpdateNew UpdateKind = iota
	UpdateEdit
	UpdateDelete
	UpdateReply
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateNew:
		return "new"
	case UpdateEdit:
		return "edit"
	case UpdateDelete:
		return "delete"
	case UpdateReply:
		return "reply"
	default:
		return "unknown"
	}
}

// SheetUpdate is one prepared worksheet mutation derived from a Slack
// message event. Immutable after construction; owned by the pending queue
// until the synchronizer consumes it.
type SheetUpdate struct {
	kind      UpdateKind
	messageID string
	channelID types.ChannelID
	text      string
	timestamp time.Time
	rawTS     string

	userID   types.UserID // New only
	editedAt time.Time    // Edit only
}

func (u *SheetUpdate) Kind() UpdateKind           { return u.kind }
func (u *SheetUpdate) MessageID() string          { return u.messageID }
func (u *SheetUpdate) ChannelID() types.ChannelID { return u.channelID }
func (u *SheetUpdate) Text() string               { return u.text }
func (u *SheetUpdate) Timestamp() time.Time       { return u.timestamp }
func (u *SheetUpdate) RawTS() string              { return u.rawTS }
func (u *SheetUpdate) UserID() types.UserID       { return u.userID }
func (u *SheetUpdate) EditedAt() time.Time        { return u.editedAt }

// CorrelationValue is the cell text searched for when locating the existing
// row of this update under the given layout.
func (u *SheetUpdate) CorrelationValue(layout Layout) string {
	if layout.CorrelationColumn() == ColumnMessageID {
		return u.messageID
	}
	return u.rawTS
}

// Row renders the worksheet row for a New update. displayName is the
// resolved user name (or the raw user ID as fallback), loc the display
// timezone.
func (u *SheetUpdate) Row(layout Layout, displayName string, loc *time.Location) []string {
	ts := u.timestamp.In(loc).Format(time.RFC3339)

	row := make([]string, layout.Len())
	for i, c := range layout.columns {
		switch c {
		case ColumnMessageID:
			row[i] = u.messageID
		case ColumnUsername:
			row[i] = displayName
		case ColumnMessage:
			row[i] = u.text
		case ColumnMessageTimestamp, ColumnTimestampConverted:
			row[i] = ts
		case ColumnUserID:
			row[i] = string(u.userID)
		case ColumnTimestamp:
			row[i] = u.rawTS
		case ColumnLastEdited, ColumnTimestampEdited:
			row[i] = ""
		}
	}
	return row
}

// NewSheetUpdate classifies a Slack message event by subtype and builds the
// corresponding update. Absent subtype means a new message; message_changed,
// message_deleted and message_replied map to Edit, Delete and Reply. Any
// other subtype is unsupported.
func NewSheetUpdate(ev *slackevents.MessageEvent) (*SheetUpdate, error) {
	if ev == nil || ev.Type != "message" {
		return nil, goerr.Wrap(types.ErrUnsupportedEvent, "event type must be message")
	}

	switch ev.SubType {
	case "":
		return buildNew(ev)
	case "message_changed":
		return buildEdit(ev)
	case "message_deleted":
		return buildDelete(ev)
	case "message_replied":
		return buildReply(ev)
	default:
		return nil, goerr.Wrap(types.ErrUnsupportedEvent, "unsupported message subtype",
			goerr.V("subtype", ev.SubType))
	}
}

func buildNew(ev *slackevents.MessageEvent) (*SheetUpdate, error) {
	if ev.User == "" || ev.TimeStamp == "" {
		return nil, goerr.Wrap(types.ErrMalformedEvent, "message event requires user and ts")
	}

	ts, err := parseSlackTS(ev.TimeStamp)
	if err != nil {
		return nil, err
	}

	return &SheetUpdate{
		kind:      UpdateNew,
		messageID: messageID(ev.ClientMsgID, ev.TimeStamp),
		channelID: types.ChannelID(ev.Channel),
		text:      ev.Text,
		timestamp: ts,
		rawTS:     ev.TimeStamp,
		userID:    types.UserID(ev.User),
	}, nil
}

func buildEdit(ev *slackevents.MessageEvent) (*SheetUpdate, error) {
	// Slack nests the post-edit content under "message"
	if ev.Message == nil || ev.Message.Timestamp == "" {
		return nil, goerr.Wrap(types.ErrMalformedEvent, "message_changed event requires nested message")
	}
	if ev.Message.Edited == nil || ev.Message.Edited.Timestamp == "" {
		return nil, goerr.Wrap(types.ErrMalformedEvent, "message_changed event requires edited.ts")
	}

	ts, err := parseSlackTS(ev.Message.Timestamp)
	if err != nil {
		return nil, err
	}
	editedAt, err := parseSlackTS(ev.Message.Edited.Timestamp)
	if err != nil {
		return nil, err
	}

	return &SheetUpdate{
		kind:      UpdateEdit,
		messageID: messageID(ev.Message.ClientMsgID, ev.Message.Timestamp),
		channelID: types.ChannelID(ev.Channel),
		text:      ev.Message.Text,
		timestamp: ts,
		rawTS:     ev.Message.Timestamp,
		editedAt:  editedAt,
	}, nil
}

func buildDelete(ev *slackevents.MessageEvent) (*SheetUpdate, error) {
	// message_deleted usually carries only deleted_ts; older payloads nest
	// the removed message
	rawTS := ev.DeletedTimeStamp
	msgID := ""
	text := ""
	if ev.Message != nil {
		rawTS = ev.Message.Timestamp
		msgID = ev.Message.ClientMsgID
		text = ev.Message.Text
	}
	if rawTS == "" {
		return nil, goerr.Wrap(types.ErrMalformedEvent, "message_deleted event requires deleted_ts or nested message")
	}

	ts, err := parseSlackTS(rawTS)
	if err != nil {
		return nil, err
	}

	return &SheetUpdate{
		kind:      UpdateDelete,
		messageID: messageID(msgID, rawTS),
		channelID: types.ChannelID(ev.Channel),
		text:      text,
		timestamp: ts,
		rawTS:     rawTS,
	}, nil
}

func buildReply(ev *slackevents.MessageEvent) (*SheetUpdate, error) {
	if ev.Message == nil || ev.Message.Timestamp == "" {
		return nil, goerr.Wrap(types.ErrMalformedEvent, "message_replied event requires nested message")
	}

	ts, err := parseSlackTS(ev.Message.Timestamp)
	if err != nil {
		return nil, err
	}

	return &SheetUpdate{
		kind:      UpdateReply,
		messageID: messageID(ev.Message.ClientMsgID, ev.Message.Timestamp),
		channelID: types.ChannelID(ev.Channel),
		text:      ev.Message.Text,
		timestamp: ts,
		rawTS:     ev.Message.Timestamp,
	}, nil
}

// messageID prefers the client-generated message ID; delete events commonly
// lack it, so the timestamp string serves as the stable fallback key.
func messageID(clientMsgID, ts string) string {
	if clientMsgID != "" {
		return clientMsgID
	}
	return ts
}

// parseSlackTS parses a Slack "ts" value (epoch seconds with fractional
// part, e.g. "1610000000.000100") into a time.Time.
func parseSlackTS(s string) (time.Time, error) {
	secStr, fracStr, _ := strings.Cut(s, ".")

	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return time.Time{}, goerr.Wrap(types.ErrMalformedEvent, "invalid ts value",
			goerr.V("ts", s))
	}

	var nsec int64
	if fracStr != "" {
		if len(fracStr) > 9 {
			fracStr = fracStr[:9]
		}
		frac, err := strconv.ParseInt(fracStr, 10, 64)
		if err != nil {
			return time.Time{}, goerr.Wrap(types.ErrMalformedEvent, "invalid ts fraction",
				goerr.V("ts", s))
		}
		for i := len(fracStr); i < 9; i++ {
			frac *= 10
		}
		nsec = frac
	}

	return time.Unix(sec, nsec), nil
}
