package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/hostside/cli/render"
	"github.com/justapithecus/hostside/collector"
)

// ManifestCommand returns the manifest command.
func ManifestCommand() *cli.Command {
	return &cli.Command{
		Name:      "manifest",
		Usage:     "Show a pull manifest",
		ArgsUsage: "<path>",
		Flags:     []cli.Flag{FormatFlag},
		Action:    manifestAction,
	}
}

func manifestAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("manifest requires exactly one path", exitUsage)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError(err)
	}

	m, err := collector.ReadManifest(c.Args().First())
	if err != nil {
		return failure("read manifest: %v", err)
	}

	// Tables show one row per artifact.
	if r.Format() == render.FormatTable {
		return r.Render(m.Artifacts)
	}
	return r.Render(m)
}
