package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/logmirror/slacksheet/pkg/domain/interfaces"
	"github.com/logmirror/slacksheet/pkg/domain/model"
	"github.com/logmirror/slacksheet/pkg/service/sheets"
	"github.com/logmirror/slacksheet/pkg/usecase"
	"github.com/logmirror/slacksheet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Sheets holds CLI flags for the spreadsheet backend and row layout
type Sheets struct {
	backend         string
	credentialsFile string
	spreadsheetName string
	worksheetName   string
	perChannel      bool
	layoutName      string
	timezone        string
}

func (x *Sheets) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sheets-backend",
			Usage:       "Spreadsheet backend type (google or memory)",
			Category:    "Sheets",
			Value:       "google",
			Sources:     cli.EnvVars("SLACKSHEET_SHEETS_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "google-credentials",
			Usage:       "Path to Google service account credentials JSON (required when using google backend)",
			Category:    "Sheets",
			Sources:     cli.EnvVars("SLACKSHEET_GOOGLE_CREDENTIALS"),
			Destination: &x.credentialsFile,
		},
		&cli.StringFlag{
			Name:        "spreadsheet-name",
			Usage:       "Name of the target spreadsheet document",
			Category:    "Sheets",
			Sources:     cli.EnvVars("SLACKSHEET_SPREADSHEET_NAME"),
			Destination: &x.spreadsheetName,
		},
		&cli.StringFlag{
			Name:        "worksheet-name",
			Usage:       "Worksheet all messages are written to (ignored with --per-channel-worksheets)",
			Category:    "Sheets",
			Value:       usecase.MessageWorksheetName,
			Sources:     cli.EnvVars("SLACKSHEET_WORKSHEET_NAME"),
			Destination: &x.worksheetName,
		},
		&cli.BoolFlag{
			Name:        "per-channel-worksheets",
			Usage:       "Write each channel to its own worksheet instead of a single shared one",
			Category:    "Sheets",
			Sources:     cli.EnvVars("SLACKSHEET_PER_CHANNEL_WORKSHEETS"),
			Destination: &x.perChannel,
		},
		&cli.StringFlag{
			Name:        "column-layout",
			Usage:       "Row column layout preset (default or extended)",
			Category:    "Sheets",
			Value:       "default",
			Sources:     cli.EnvVars("SLACKSHEET_COLUMN_LAYOUT"),
			Destination: &x.layoutName,
		},
		&cli.StringFlag{
			Name:        "display-timezone",
			Usage:       "IANA timezone for rendered timestamps",
			Category:    "Sheets",
			Value:       "America/New_York",
			Sources:     cli.EnvVars("SLACKSHEET_DISPLAY_TIMEZONE"),
			Destination: &x.timezone,
		},
	}
}

func (x Sheets) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("spreadsheet", x.spreadsheetName),
		slog.String("worksheet", x.worksheetName),
		slog.Bool("per-channel", x.perChannel),
		slog.String("layout", x.layoutName),
		slog.String("timezone", x.timezone),
	)
}

// SpreadsheetName returns the target spreadsheet document name
func (x *Sheets) SpreadsheetName() string {
	return x.spreadsheetName
}

// WorksheetName returns the fixed worksheet name
func (x *Sheets) WorksheetName() string {
	return x.worksheetName
}

// PerChannel reports whether per-channel worksheets are enabled
func (x *Sheets) PerChannel() bool {
	return x.perChannel
}

// Layout resolves the configured column layout preset
func (x *Sheets) Layout() (model.Layout, error) {
	return model.LayoutByName(x.layoutName)
}

// Timezone resolves the configured display timezone
func (x *Sheets) Timezone() (*time.Location, error) {
	loc, err := time.LoadLocation(x.timezone)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid display timezone", goerr.V("timezone", x.timezone))
	}
	return loc, nil
}

// Configure initializes the spreadsheet client based on the configured
// backend.
func (x *Sheets) Configure(ctx context.Context) (interfaces.SheetsClient, error) {
	if x.spreadsheetName == "" {
		return nil, goerr.New("spreadsheet-name is required")
	}

	switch x.backend {
	case "google":
		client, err := sheets.NewGoogle(ctx, x.credentialsFile)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize google sheets client")
		}
		logging.Default().Info("Using Google Sheets backend", "spreadsheet", x.spreadsheetName)
		return client, nil

	case "memory":
		logging.Default().Info("Using in-memory sheets backend (development mode)")
		client := sheets.NewMemory()
		client.AddSpreadsheet(x.spreadsheetName)
		return client, nil

	default:
		return nil, goerr.New("invalid sheets backend", goerr.V("backend", x.backend))
	}
}
