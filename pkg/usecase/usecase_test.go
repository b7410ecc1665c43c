package usecase_test

import (
	"testing"
	"time"

	"github.com/logmirror/slacksheet/pkg/domain/model"
	"github.com/logmirror/slacksheet/pkg/domain/types"
	"github.com/logmirror/slacksheet/pkg/repository/memory"
	"github.com/logmirror/slacksheet/pkg/service/sheets"
	"github.com/logmirror/slacksheet/pkg/usecase"
	"github.com/m-mizutani/gt"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

func testUsers() map[types.UserID]*model.SlackUser {
	return map[types.UserID]*model.SlackUser{
		"U1": {ID: "U1", Name: "alice", RealName: "Alice Example", LastRefreshed: time.Now()},
		"U2": {ID: "U2", Name: "bob", RealName: "Bob Example", LastRefreshed: time.Now()},
	}
}

func setupMirror(t *testing.T, opts ...usecase.Option) (*usecase.UseCases, *sheets.MemoryClient) {
	t.Helper()

	client := sheets.NewMemory()
	client.AddSpreadsheet("mirror")

	source := &stubUserSource{users: testUsers()}
	base := []usecase.Option{
		usecase.WithSpreadsheetName("mirror"),
	}
	uc := usecase.New(client, source, memory.New(), append(base, opts...)...)
	return uc, client
}

func worksheetRows(t *testing.T, client *sheets.MemoryClient, worksheet string) [][]string {
	t.Helper()

	ss, err := client.OpenSpreadsheet(t.Context(), "mirror")
	gt.NoError(t, err).Required()
	ws, err := ss.Worksheet(t.Context(), worksheet)
	gt.NoError(t, err).Required()
	mw := gt.Cast[*sheets.MemoryWorksheet](t, ws)
	return mw.Rows()
}

func postMessage(t *testing.T, uc *usecase.UseCases, ev *slackevents.MessageEvent) {
	t.Helper()
	gt.NoError(t, uc.HandleMessageEvent(t.Context(), ev)).Required()
}

func TestMirrorNewMessage(t *testing.T) {
	uc, client := setupMirror(t)

	postMessage(t, uc, &slackevents.MessageEvent{
		Type:        "message",
		Channel:     "C1",
		User:        "U1",
		Text:        "hi",
		TimeStamp:   "1610000000.000100",
		ClientMsgID: "m1",
	})
	gt.NoError(t, uc.Queue.FlushAll(t.Context()))

	rows := worksheetRows(t, client, usecase.MessageWorksheetName)
	gt.Array(t, rows[0]).Equal([]string{
		"MessageId", "Username", "Message", "MessageTimestamp", "LastEdited",
	})
	gt.Array(t, rows[1]).Equal([]string{
		"m1", "Alice Example", "hi", "2021-01-07T06:13:20Z", "",
	})
}

func TestMirrorNewestFirst(t *testing.T) {
	uc, client := setupMirror(t)

	postMessage(t, uc, &slackevents.MessageEvent{
		Type: "message", Channel: "C1", User: "U1",
		Text: "first", TimeStamp: "1610000000.000100", ClientMsgID: "m1",
	})
	postMessage(t, uc, &slackevents.MessageEvent{
		Type: "message", Channel: "C1", User: "U2",
		Text: "second", TimeStamp: "1610000060.000100", ClientMsgID: "m2",
	})
	gt.NoError(t, uc.Queue.FlushAll(t.Context()))

	// Rows are inserted at row 2: newest message on top
	rows := worksheetRows(t, client, usecase.MessageWorksheetName)
	gt.Value(t, rows[1][0]).Equal("m2")
	gt.Value(t, rows[2][0]).Equal("m1")
}

func TestMirrorEditMessage(t *testing.T) {
	uc, client := setupMirror(t)
	ctx := t.Context()

	postMessage(t, uc, &slackevents.MessageEvent{
		Type: "message", Channel: "C1", User: "U1",
		Text: "typo", TimeStamp: "1610000000.000100", ClientMsgID: "m1",
	})
	gt.NoError(t, uc.Queue.FlushAll(ctx))

	postMessage(t, uc, &slackevents.MessageEvent{
		Type:    "message",
		SubType: "message_changed",
		Channel: "C1",
		Message: &slack.Msg{
			ClientMsgID: "m1",
			Text:        "fixed",
			Timestamp:   "1610000000.000100",
			Edited:      &slack.Edited{User: "U1", Timestamp: "1610000120.000000"},
		},
	})
	gt.NoError(t, uc.Queue.FlushAll(ctx))

	rows := worksheetRows(t, client, usecase.MessageWorksheetName)
	gt.Value(t, rows[1][2]).Equal("fixed")
	gt.Value(t, rows[1][4]).Equal("2021-01-07T06:15:20Z")
}

func TestMirrorDeleteMessage(t *testing.T) {
	uc, client := setupMirror(t)
	ctx := t.Context()

	postMessage(t, uc, &slackevents.MessageEvent{
		Type: "message", Channel: "C1", User: "U1",
		Text: "keep", TimeStamp: "1610000000.000100", ClientMsgID: "m1",
	})
	postMessage(t, uc, &slackevents.MessageEvent{
		Type: "message", Channel: "C1", User: "U2",
		Text: "remove", TimeStamp: "1610000060.000100",
	})
	gt.NoError(t, uc.Queue.FlushAll(ctx))

	// No client_msg_id on the original: the ts string is the key
	postMessage(t, uc, &slackevents.MessageEvent{
		Type:             "message",
		SubType:          "message_deleted",
		Channel:          "C1",
		DeletedTimeStamp: "1610000060.000100",
	})
	gt.NoError(t, uc.Queue.FlushAll(ctx))

	// Header, the surviving message, and the provisioned blank row
	rows := worksheetRows(t, client, usecase.MessageWorksheetName)
	gt.Array(t, rows).Length(3)
	gt.Value(t, rows[1][0]).Equal("m1")
}

func TestMirrorEditUnknownMessageSkipped(t *testing.T) {
	uc, client := setupMirror(t)
	ctx := t.Context()

	postMessage(t, uc, &slackevents.MessageEvent{
		Type: "message", Channel: "C1", User: "U1",
		Text: "only", TimeStamp: "1610000000.000100", ClientMsgID: "m1",
	})
	gt.NoError(t, uc.Queue.FlushAll(ctx))

	postMessage(t, uc, &slackevents.MessageEvent{
		Type:    "message",
		SubType: "message_changed",
		Channel: "C1",
		Message: &slack.Msg{
			ClientMsgID: "missing",
			Text:        "never lands",
			Timestamp:   "1609990000.000100",
			Edited:      &slack.Edited{User: "U1", Timestamp: "1610000120.000000"},
		},
	})
	gt.NoError(t, uc.Queue.FlushAll(ctx))

	rows := worksheetRows(t, client, usecase.MessageWorksheetName)
	gt.Array(t, rows).Length(3)
	gt.Value(t, rows[1][2]).Equal("only")
}

func TestMirrorAmbiguousMatchSkipped(t *testing.T) {
	uc, client := setupMirror(t, usecase.WithLayout(model.ExtendedLayout()))
	ctx := t.Context()

	// Two rows share the raw ts: the extended layout's correlation key
	for range 2 {
		postMessage(t, uc, &slackevents.MessageEvent{
			Type: "message", Channel: "C1", User: "U1",
			Text: "dup", TimeStamp: "1610000000.000100",
		})
	}
	gt.NoError(t, uc.Queue.FlushAll(ctx))

	postMessage(t, uc, &slackevents.MessageEvent{
		Type:             "message",
		SubType:          "message_deleted",
		Channel:          "C1",
		DeletedTimeStamp: "1610000000.000100",
	})
	gt.NoError(t, uc.Queue.FlushAll(ctx))

	// Neither row was deleted
	rows := worksheetRows(t, client, usecase.MessageWorksheetName)
	gt.Array(t, rows).Length(4)
}

func TestMirrorUnwatchedChannelIgnored(t *testing.T) {
	uc, _ := setupMirror(t, usecase.WithWatchedChannels([]string{"C1"}))

	postMessage(t, uc, &slackevents.MessageEvent{
		Type: "message", Channel: "C9", User: "U1",
		Text: "elsewhere", TimeStamp: "1610000000.000100", ClientMsgID: "m1",
	})

	gt.Value(t, uc.Queue.Len()).Equal(0)
}

func TestMirrorUnsupportedSubtypeSwallowed(t *testing.T) {
	uc, _ := setupMirror(t)

	// Unsupported events must not propagate an error: the webhook was
	// already acknowledged
	postMessage(t, uc, &slackevents.MessageEvent{
		Type:    "message",
		SubType: "channel_join",
		Channel: "C1",
		User:    "U1",
	})

	gt.Value(t, uc.Queue.Len()).Equal(0)
}

func TestMirrorPerChannelWorksheets(t *testing.T) {
	uc, client := setupMirror(t, usecase.WithPerChannelWorksheets(true))
	ctx := t.Context()

	postMessage(t, uc, &slackevents.MessageEvent{
		Type: "message", Channel: "C1", User: "U1",
		Text: "in one", TimeStamp: "1610000000.000100", ClientMsgID: "m1",
	})
	postMessage(t, uc, &slackevents.MessageEvent{
		Type: "message", Channel: "C2", User: "U2",
		Text: "in two", TimeStamp: "1610000060.000100", ClientMsgID: "m2",
	})
	gt.NoError(t, uc.Queue.FlushAll(ctx))

	gt.Value(t, worksheetRows(t, client, "C1")[1][0]).Equal("m1")
	gt.Value(t, worksheetRows(t, client, "C2")[1][0]).Equal("m2")
}

func TestMirrorUnresolvableUserFallsBackToID(t *testing.T) {
	uc, client := setupMirror(t)

	postMessage(t, uc, &slackevents.MessageEvent{
		Type: "message", Channel: "C1", User: "UNKNOWN",
		Text: "ghost", TimeStamp: "1610000000.000100", ClientMsgID: "m1",
	})
	gt.NoError(t, uc.Queue.FlushAll(t.Context()))

	rows := worksheetRows(t, client, usecase.MessageWorksheetName)
	gt.Value(t, rows[1][1]).Equal("UNKNOWN")
}

func TestMirrorFlushIsIdempotentOnHeaders(t *testing.T) {
	uc, client := setupMirror(t)
	ctx := t.Context()

	postMessage(t, uc, &slackevents.MessageEvent{
		Type: "message", Channel: "C1", User: "U1",
		Text: "one", TimeStamp: "1610000000.000100", ClientMsgID: "m1",
	})
	gt.NoError(t, uc.Queue.FlushAll(ctx))

	postMessage(t, uc, &slackevents.MessageEvent{
		Type: "message", Channel: "C1", User: "U1",
		Text: "two", TimeStamp: "1610000060.000100", ClientMsgID: "m2",
	})
	gt.NoError(t, uc.Queue.FlushAll(ctx))

	// Exactly one header row across flush cycles
	rows := worksheetRows(t, client, usecase.MessageWorksheetName)
	headerCount := 0
	for _, row := range rows {
		if len(row) > 0 && row[0] == "MessageId" {
			headerCount++
		}
	}
	gt.Value(t, headerCount).Equal(1)
	gt.Array(t, rows).Length(4)
}
