// Package cmd provides CLI commands for the hostside binary.
package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/hostside/cli/config"
	"github.com/justapithecus/hostside/cli/render"
	"github.com/justapithecus/hostside/log"
	"github.com/justapithecus/hostside/metrics"
	"github.com/justapithecus/hostside/types"
)

// Exit codes shared by all commands.
const (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2
)

// Shared flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// ConfigFlag points at a hostside.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file (default: ./" + config.DefaultFile + " if present)",
	}

	// LogLevelFlag overrides log.level from the config file.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
	}
)

// CommonFlags returns the flags shared by every command.
func CommonFlags() []cli.Flag {
	return []cli.Flag{FormatFlag, ConfigFlag, LogLevelFlag}
}

// session bundles the per-invocation state every command needs.
type session struct {
	id       string
	cfg      *config.Config
	logger   *log.Logger
	metrics  *metrics.Collector
	renderer *render.Renderer
}

// newSession loads config, selects the renderer and builds the logger.
// Failures are usage errors (exit 2).
func newSession(c *cli.Context, runName string) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, usageError(err)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return nil, usageError(err)
	}

	levelName := c.String("log-level")
	if levelName == "" {
		levelName = cfg.Log.Level
	}
	level, err := log.ParseLevel(levelName)
	if err != nil {
		return nil, usageError(err)
	}

	id := uuid.NewString()
	meta := &types.SessionMeta{SessionID: id}
	if runName != "" {
		meta.RunName = &runName
	}

	logger := log.NewLogger(meta, level)
	if c.App != nil && c.App.ErrWriter != nil {
		logger = logger.WithOutput(c.App.ErrWriter)
	}

	return &session{
		id:       id,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics.NewCollector(id),
		renderer: r,
	}, nil
}

// loadConfig reads --config, or ./hostside.yaml when present.
// With neither, an empty config is returned.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err != nil {
			return &config.Config{}, nil
		}
		path = config.DefaultFile
	}
	return config.Load(path)
}

func usageError(err error) error {
	return cli.Exit(err.Error(), exitUsage)
}

func failure(format string, args ...any) error {
	return cli.Exit(fmt.Sprintf(format, args...), exitFailure)
}

// stringOr returns the flag value when set, otherwise def.
func stringOr(c *cli.Context, name, def string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	return def
}
