package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"github.com/secmon-lab/huddle/pkg/utils/clock"
	"github.com/urfave/cli/v3"
)

// printCounts writes one line per counter. Non-zero error counters are red.
func printCounts(w io.Writer, title string, counts []count) {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintln(w, title)
	for _, c := range counts {
		c.print(w)
	}
}

type count struct {
	label string
	value int
	isErr bool
}

func (c count) print(w io.Writer) {
	value := color.New(color.FgGreen)
	switch {
	case c.isErr && c.value > 0:
		value = color.New(color.FgRed, color.Bold)
	case c.value == 0:
		value = color.New(color.Faint)
	}
	_, _ = fmt.Fprintf(w, "  %-10s ", c.label)
	_, _ = value.Fprintf(w, "%d\n", c.value)
}

func cmdMatch(version string) *cli.Command {
	var rtCfg runtimeConfig

	return &cli.Command{
		Name:  "match",
		Usage: "Create and schedule the standups due now, once",
		Flags: rtCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := rtCfg.build(ctx, version)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.uc.Matcher.RunOnce(ctx, clock.System().Now())
			if err != nil {
				return goerr.Wrap(err, "matcher failed")
			}

			printCounts(c.Root().Writer, "Matcher result", []count{
				{label: "processed", value: res.Processed},
				{label: "created", value: res.Created},
				{label: "skipped", value: res.Skipped},
				{label: "errors", value: res.Errors, isErr: true},
			})
			return nil
		},
	}
}

func cmdSweep(version string) *cli.Command {
	var rtCfg runtimeConfig

	return &cli.Command{
		Name:  "sweep",
		Usage: "Complete stuck collecting standups, once",
		Flags: rtCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := rtCfg.build(ctx, version)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.uc.Sweep.RunOnce(ctx, clock.System().Now())
			if err != nil {
				return goerr.Wrap(err, "sweep failed")
			}

			printCounts(c.Root().Writer, "Sweep result", []count{
				{label: "scanned", value: res.Scanned},
				{label: "completed", value: res.Completed},
				{label: "skipped", value: res.Skipped},
				{label: "errors", value: res.Errors, isErr: true},
			})
			return nil
		},
	}
}

func cmdCleanup(version string) *cli.Command {
	var rtCfg runtimeConfig
	var date string

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "date",
			Usage:       "Reference date (YYYY-MM-DD) the retention period counts back from; today when empty",
			Destination: &date,
		},
	}
	flags = append(flags, rtCfg.Flags()...)

	return &cli.Command{
		Name:  "cleanup",
		Usage: "Archive and delete standups older than the retention period, once",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := rtCfg.build(ctx, version)
			if err != nil {
				return err
			}
			defer rt.Close()

			cutoff, err := rt.uc.CleanupCutoff(&model.Task{Date: types.Date(date)})
			if err != nil {
				return err
			}

			res, err := rt.uc.Cleanup.RunOnce(ctx, cutoff)
			if err != nil {
				return goerr.Wrap(err, "cleanup failed", goerr.V("cutoff", cutoff))
			}

			printCounts(c.Root().Writer, "Cleanup result (before "+cutoff.String()+")", []count{
				{label: "scanned", value: res.Scanned},
				{label: "archived", value: res.Archived},
				{label: "deleted", value: res.Deleted},
				{label: "errors", value: res.Errors, isErr: true},
			})
			return nil
		},
	}
}
