package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/hostside/iox"
)

// ResolveResult is one row of resolve output.
type ResolveResult struct {
	Identifier string `json:"identifier"`
	Path       string `json:"path"`
	IsDir      bool   `json:"is_dir"`
	Temporary  bool   `json:"temporary"`
	Error      string `json:"error,omitempty"`
}

// ResolveCommand returns the resolve command.
// Resolved temporary artifacts are left in place for the caller.
func ResolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Materialize artifact identifiers as local files",
		ArgsUsage: "<identifier>...",
		Flags: append(CommonFlags(),
			&cli.StringFlag{
				Name:  "temp-dir",
				Usage: "Directory for downloads (default: resolvers.temp_dir or the system temp dir)",
			},
		),
		Action: resolveAction,
	}
}

func resolveAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("resolve requires at least one identifier", exitUsage)
	}
	s, err := newSession(c, "")
	if err != nil {
		return err
	}
	defer iox.DiscardErr(s.logger.Sync)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := buildRegistry(ctx, s, c.String("temp-dir"))
	if err != nil {
		return usageError(err)
	}

	results := make([]ResolveResult, 0, c.NArg())
	failed := 0
	for _, id := range c.Args().Slice() {
		row := ResolveResult{Identifier: id}
		artifact, err := reg.ResolveString(ctx, id)
		if err != nil {
			row.Error = err.Error()
			failed++
		} else {
			row.Path = artifact.Path
			row.IsDir = artifact.IsDir
			row.Temporary = artifact.Temporary
		}
		results = append(results, row)
	}

	if err := s.renderer.Render(results); err != nil {
		return err
	}
	if failed > 0 {
		return failure("%d of %d identifiers failed to resolve", failed, len(results))
	}
	return nil
}
