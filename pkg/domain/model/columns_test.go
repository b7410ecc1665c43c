package model_test

import (
	"testing"

	"github.com/logmirror/slacksheet/pkg/domain/model"
	"github.com/m-mizutani/gt"
)

func TestLayoutByName(t *testing.T) {
	tests := []struct {
		name     string
		arg      string
		wantName string
		wantErr  bool
	}{
		{"empty defaults", "", "default", false},
		{"default", "default", "default", false},
		{"extended", "extended", "extended", false},
		{"unknown", "wide", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := model.LayoutByName(tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, layout.Name()).Equal(tt.wantName)
		})
	}
}

func TestLayoutHeaders(t *testing.T) {
	gt.Array(t, model.DefaultLayout().Headers()).Equal([]string{
		"MessageId", "Username", "Message", "MessageTimestamp", "LastEdited",
	})
	gt.Array(t, model.ExtendedLayout().Headers()).Equal([]string{
		"Username", "Message", "TimestampConverted", "UserID", "Timestamp", "TimestampEdited",
	})
}

func TestLayoutIndexOf(t *testing.T) {
	layout := model.DefaultLayout()

	gt.Value(t, layout.IndexOf(model.ColumnMessageID)).Equal(int64(1))
	gt.Value(t, layout.IndexOf(model.ColumnLastEdited)).Equal(int64(5))
	gt.Value(t, layout.IndexOf(model.ColumnTimestamp)).Equal(int64(0))
}

func TestLayoutCorrelationAndEditedColumns(t *testing.T) {
	gt.Value(t, model.DefaultLayout().CorrelationColumn()).Equal(model.ColumnMessageID)
	gt.Value(t, model.DefaultLayout().EditedColumn()).Equal(model.ColumnLastEdited)

	gt.Value(t, model.ExtendedLayout().CorrelationColumn()).Equal(model.ColumnTimestamp)
	gt.Value(t, model.ExtendedLayout().EditedColumn()).Equal(model.ColumnTimestampEdited)
}
