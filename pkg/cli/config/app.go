package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// DefaultFlushInterval is how often the background worker drains the
// pending queue when traffic stays below the flush threshold.
const DefaultFlushInterval = time.Minute

// AppConfig is the TOML application configuration: the channel allow-list
// and queue tuning. All of it is optional; an absent file watches every
// channel with default tuning.
type AppConfig struct {
	Channels []WatchedChannel `toml:"channel"`
	Queue    QueueConfig      `toml:"queue"`

	path string
}

// WatchedChannel is one allow-listed Slack channel
type WatchedChannel struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// Validate checks if the WatchedChannel is valid
func (c *WatchedChannel) Validate() error {
	if c.ID == "" {
		return goerr.Wrap(ErrInvalidConfig, "channel id is required", goerr.V("name", c.Name))
	}
	return nil
}

// QueueConfig tunes the pending update queue
type QueueConfig struct {
	MaxPendingWrites int    `toml:"max_pending_writes"`
	FlushInterval    string `toml:"flush_interval"`
}

func (x *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to TOML configuration file (channel allow-list and queue tuning)",
			Sources:     cli.EnvVars("SLACKSHEET_CONFIG"),
			Destination: &x.path,
		},
	}
}

func (x AppConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", x.path),
		slog.Int("channels", len(x.Channels)),
	)
}

// Validate checks if the AppConfig is valid
func (x *AppConfig) Validate() error {
	channelIDs := make(map[string]bool)
	for _, ch := range x.Channels {
		if err := ch.Validate(); err != nil {
			return goerr.Wrap(err, "invalid channel")
		}
		if channelIDs[ch.ID] {
			return goerr.Wrap(ErrInvalidConfig, "duplicate channel ID", goerr.V("id", ch.ID))
		}
		channelIDs[ch.ID] = true
	}

	if x.Queue.MaxPendingWrites < 0 {
		return goerr.Wrap(ErrInvalidConfig, "max_pending_writes must not be negative",
			goerr.V("max_pending_writes", x.Queue.MaxPendingWrites))
	}
	if x.Queue.FlushInterval != "" {
		d, err := time.ParseDuration(x.Queue.FlushInterval)
		if err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid flush_interval",
				goerr.V("flush_interval", x.Queue.FlushInterval))
		}
		if d <= 0 {
			return goerr.Wrap(ErrInvalidConfig, "flush_interval must be positive",
				goerr.V("flush_interval", x.Queue.FlushInterval))
		}
	}

	return nil
}

// Load reads and validates the configuration file. An unset path leaves
// the zero value in place.
func (x *AppConfig) Load() error {
	if x.path == "" {
		return nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(x.path)
	if err != nil {
		if os.IsNotExist(err) {
			return goerr.Wrap(ErrConfigNotFound, "configuration file does not exist",
				goerr.V(ConfigPathKey, x.path))
		}
		return goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, x.path))
	}

	if err := toml.Unmarshal(data, x); err != nil {
		return goerr.Wrap(err, "failed to parse TOML config", goerr.V(ConfigPathKey, x.path))
	}

	if err := x.Validate(); err != nil {
		return goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, x.path))
	}

	return nil
}

// ChannelIDs returns the allow-listed channel IDs. Empty means watch all.
func (x *AppConfig) ChannelIDs() []string {
	ids := make([]string, 0, len(x.Channels))
	for _, ch := range x.Channels {
		ids = append(ids, ch.ID)
	}
	return ids
}

// FlushInterval returns the configured worker interval, falling back to
// the default. Validate must have accepted the value first.
func (x *AppConfig) FlushInterval() time.Duration {
	if x.Queue.FlushInterval == "" {
		return DefaultFlushInterval
	}
	d, err := time.ParseDuration(x.Queue.FlushInterval)
	if err != nil {
		return DefaultFlushInterval
	}
	return d
}
