package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"project-pulse/internals/modules/report"
	"project-pulse/internals/modules/scheduler"

	"github.com/spf13/cobra"
)

var printReport bool

var batteries = []struct {
	kind  scheduler.Kind
	short string
}{
	{scheduler.KindHealth, "Run the health battery once and record alerts"},
	{scheduler.KindPerformance, "Sample latency of every target once and record alerts"},
	{scheduler.KindResilience, "Run the resilience scenarios once"},
	{scheduler.KindLoad, "Fire a load burst at every API target once"},
	{scheduler.KindDashboard, "Regenerate the static dashboard"},
	{scheduler.KindDigest, "Send the daily alert digest now"},
	{scheduler.KindPrune, "Delete reports older than the retention period"},
}

func init() {
	for _, b := range batteries {
		kind := b.kind
		c := &cobra.Command{
			Use:   string(kind),
			Short: b.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runOnce(cmd.Context(), kind)
			},
		}
		if _, ok := reportKinds[kind]; ok {
			c.Flags().BoolVar(&printReport, "print", false, "write the resulting report to stdout")
		}
		rootCmd.AddCommand(c)
	}
}

var reportKinds = map[scheduler.Kind]report.Kind{
	scheduler.KindHealth:      report.KindHealth,
	scheduler.KindPerformance: report.KindPerformance,
	scheduler.KindResilience:  report.KindResilience,
	scheduler.KindLoad:        report.KindLoad,
}

// runOnce executes one battery and exits non-zero if it returned an error.
func runOnce(parent context.Context, kind scheduler.Kind) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, mc, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer mc.Shutdown(context.Background())

	if err := mc.Scheduler.RunOnce(ctx, kind); err != nil {
		return err
	}

	rk, ok := reportKinds[kind]
	if !ok || !printReport {
		return nil
	}
	var raw json.RawMessage
	found, err := mc.Reports.Latest(rk, &raw)
	if err != nil {
		return err
	}
	if !found {
		log.Warn().Str("kind", string(rk)).Msg("no report written")
		return nil
	}
	_, err = fmt.Fprintln(os.Stdout, string(raw))
	return err
}
