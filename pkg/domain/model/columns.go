package model

import "github.com/m-mizutani/goerr/v2"

// Column is a worksheet column name. Row 1 of every managed worksheet must
// equal the layout's column sequence exactly.
type Column string

const (
	ColumnMessageID        Column = "MessageId"
	ColumnUsername         Column = "Username"
	ColumnMessage          Column = "Message"
	ColumnMessageTimestamp Column = "MessageTimestamp"
	ColumnLastEdited       Column = "LastEdited"

	// Extended layout columns
	ColumnTimestampConverted Column = "TimestampConverted"
	ColumnUserID             Column = "UserID"
	ColumnTimestamp          Column = "Timestamp"
	ColumnTimestampEdited    Column = "TimestampEdited"
)

// Layout is an ordered, fixed set of worksheet columns. The layout is a
// deployment-time configuration choice, not negotiated at runtime.
type Layout struct {
	name    string
	columns []Column
}

// DefaultLayout correlates rows by message ID.
func DefaultLayout() Layout {
	return Layout{
		name: "default",
		columns: []Column{
			ColumnMessageID,
			ColumnUsername,
			ColumnMessage,
			ColumnMessageTimestamp,
			ColumnLastEdited,
		},
	}
}

// ExtendedLayout carries raw timestamp columns and correlates rows by the
// raw message timestamp string.
func ExtendedLayout() Layout {
	return Layout{
		name: "extended",
		columns: []Column{
			ColumnUsername,
			ColumnMessage,
			ColumnTimestampConverted,
			ColumnUserID,
			ColumnTimestamp,
			ColumnTimestampEdited,
		},
	}
}

// LayoutByName resolves a configured layout preset name.
func LayoutByName(name string) (Layout, error) {
	switch name {
	case "", "default":
		return DefaultLayout(), nil
	case "extended":
		return ExtendedLayout(), nil
	default:
		return Layout{}, goerr.New("unknown column layout", goerr.V("layout", name))
	}
}

func (l Layout) Name() string { return l.name }
func (l Layout) Len() int     { return len(l.columns) }

// Headers returns the canonical header row.
func (l Layout) Headers() []string {
	headers := make([]string, len(l.columns))
	for i, c := range l.columns {
		headers[i] = string(c)
	}
	return headers
}

// IndexOf returns the 1-based column number of c, or 0 if the layout does
// not contain it.
func (l Layout) IndexOf(c Column) int64 {
	for i, col := range l.columns {
		if col == c {
			return int64(i + 1)
		}
	}
	return 0
}

// CorrelationColumn is the column searched to locate the existing row of an
// Edit/Delete update. Message ID where available, otherwise the raw
// timestamp string (the extended layout's best effort).
func (l Layout) CorrelationColumn() Column {
	if l.IndexOf(ColumnMessageID) > 0 {
		return ColumnMessageID
	}
	return ColumnTimestamp
}

// EditedColumn is the column holding the last-edit timestamp.
func (l Layout) EditedColumn() Column {
	if l.IndexOf(ColumnLastEdited) > 0 {
		return ColumnLastEdited
	}
	return ColumnTimestampEdited
}
