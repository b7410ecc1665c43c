package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/logmirror/slacksheet/pkg/cli/config"
	httpctrl "github.com/logmirror/slacksheet/pkg/controller/http"
	"github.com/logmirror/slacksheet/pkg/service/worker"
	"github.com/logmirror/slacksheet/pkg/usecase"
	"github.com/logmirror/slacksheet/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var appCfg config.AppConfig
	var slackCfg config.Slack
	var sheetsCfg config.Sheets
	var cacheCfg config.Cache

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("SLACKSHEET_ADDR"),
			Destination: &addr,
		},
	}

	// Add shared config flags
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, sheetsCfg.Flags()...)
	flags = append(flags, cacheCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server receiving Slack events",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := appCfg.Load(); err != nil {
				return goerr.Wrap(err, "failed to load application configuration")
			}

			layout, err := sheetsCfg.Layout()
			if err != nil {
				return err
			}
			loc, err := sheetsCfg.Timezone()
			if err != nil {
				return err
			}

			// Initialize spreadsheet backend
			sheetsClient, err := sheetsCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize sheets client")
			}

			// Initialize Slack user source
			userSource, err := slackCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure slack client")
			}

			// Initialize cache store based on backend type
			cacheStore, err := cacheCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize cache store")
			}

			uc := usecase.New(sheetsClient, userSource, cacheStore,
				usecase.WithSpreadsheetName(sheetsCfg.SpreadsheetName()),
				usecase.WithWorksheetName(sheetsCfg.WorksheetName()),
				usecase.WithPerChannelWorksheets(sheetsCfg.PerChannel()),
				usecase.WithWatchedChannels(appCfg.ChannelIDs()),
				usecase.WithLayout(layout),
				usecase.WithDisplayTimezone(loc),
				usecase.WithMaxPendingWrites(appCfg.Queue.MaxPendingWrites),
			)

			logging.Default().Info("Mirror configured",
				"slack", slackCfg,
				"sheets", sheetsCfg,
				"cache", cacheCfg,
				"app", appCfg,
			)

			// Start periodic flush worker so a quiet channel still drains
			flushWorker := worker.NewFlushWorker(uc.Queue, appCfg.FlushInterval())
			flushWorker.Start(ctx)

			// Create HTTP server
			webhookHandler := httpctrl.NewSlackWebhookHandler(uc)
			httpHandler := httpctrl.New(
				httpctrl.WithSlackWebhook(webhookHandler, slackCfg.SigningSecret()),
			)
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Stop accepting new events before the final flush
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					logging.Default().Error("failed to shutdown server gracefully", "error", err.Error())
				}

				flushWorker.Stop()

				// Final flush and cache persist
				if err := uc.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to drain pending updates on shutdown")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
