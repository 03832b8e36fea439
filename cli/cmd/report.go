package cmd

import (
	"errors"
	"fmt"

	"github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/hostside/cli/reader"
	"github.com/justapithecus/hostside/store"
)

// ReportCommand returns the report command.
func ReportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Show a pull report from the report dataset",
		Flags: append(CommonFlags(),
			&cli.StringFlag{Name: "report-backend", Usage: "Report backend: fs or s3"},
			&cli.StringFlag{Name: "report-path", Usage: "Report directory (fs) or bucket/prefix (s3)"},
			&cli.StringFlag{Name: "report-dataset", Usage: "Report dataset id"},
			&cli.StringFlag{Name: "session", Usage: "Session id (default: most recent)"},
		),
		Action: reportAction,
	}
}

func reportAction(c *cli.Context) error {
	s, err := newSession(c, "")
	if err != nil {
		return err
	}

	rc := s.cfg.Report
	path := stringOr(c, "report-path", rc.Path)
	if path == "" {
		return cli.Exit("report requires --report-path or report.path", exitUsage)
	}
	st, err := store.OpenStore(c.Context, stringOr(c, "report-backend", rc.Backend), path, store.S3Config{
		Region:       rc.Region,
		Endpoint:     rc.Endpoint,
		UsePathStyle: rc.S3PathStyle,
	})
	if err != nil {
		return usageError(fmt.Errorf("open report: %w", err))
	}

	dataset := stringOr(c, "report-dataset", rc.Dataset)
	if dataset == "" {
		dataset = store.DefaultReportDataset
	}
	ds, err := store.NewReportDataset(dataset, func() (lode.Store, error) { return st, nil })
	if err != nil {
		return failure("open report dataset: %v", err)
	}

	rep, err := reader.ReadSession(c.Context, ds, c.String("session"))
	if errors.Is(err, reader.ErrNoReport) {
		return failure("%v", err)
	}
	if err != nil {
		return failure("read report: %v (%s)", err, store.ClassName(err))
	}
	return s.renderer.Render(rep)
}
