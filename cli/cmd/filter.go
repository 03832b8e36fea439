package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/hostside/filter"
)

// FilterResult is one row of filter output.
type FilterResult struct {
	Name     string `json:"name"`
	Accepted bool   `json:"accepted"`
}

// FilterCommand returns the filter command.
func FilterCommand() *cli.Command {
	return &cli.Command{
		Name:      "filter",
		Usage:     "Evaluate names against include/exclude patterns",
		ArgsUsage: "<name>...",
		Flags: append(CommonFlags(),
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include pattern (repeatable; overrides filters.include)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude pattern (repeatable; overrides filters.exclude)",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Match mode: exact, prefix, glob",
			},
		),
		Action: filterAction,
	}
}

func filterAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("filter requires at least one name", exitUsage)
	}
	s, err := newSession(c, "")
	if err != nil {
		return err
	}

	set, err := buildFilter(c, s)
	if err != nil {
		return usageError(err)
	}

	s.logger.Sugar().Debugf("filter mode=%s includes=%v excludes=%v", set.Mode(), set.Includes(), set.Excludes())

	results := make([]FilterResult, 0, c.NArg())
	for _, name := range c.Args().Slice() {
		results = append(results, FilterResult{Name: name, Accepted: set.Accepts(name)})
	}
	return s.renderer.Render(results)
}

func buildFilter(c *cli.Context, s *session) (*filter.Set, error) {
	set, err := filter.New(filter.Mode(stringOr(c, "mode", s.cfg.Filters.Mode)))
	if err != nil {
		return nil, err
	}

	includes := s.cfg.Filters.Include
	if c.IsSet("include") {
		includes = c.StringSlice("include")
	}
	excludes := s.cfg.Filters.Exclude
	if c.IsSet("exclude") {
		excludes = c.StringSlice("exclude")
	}
	if includes != nil {
		if err := set.AddIncludes(includes); err != nil {
			return nil, err
		}
	}
	if excludes != nil {
		if err := set.AddExcludes(excludes); err != nil {
			return nil, err
		}
	}
	return set, nil
}
