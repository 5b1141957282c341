package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/newthinker/volscreen/internal/core"
	"github.com/newthinker/volscreen/internal/metrics"
	"github.com/newthinker/volscreen/internal/notifier"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	screenDryRun bool
	screenPrint  bool
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run the screener once and send the report",
	Long: `Build the universe, screen it for volume spikes and deliver the ranked
report. Delivery failures are logged and do not fail the command; only a
universe failure exits non-zero.`,
	RunE: runScreen,
}

func init() {
	screenCmd.Flags().BoolVar(&screenDryRun, "dry-run", false, "screen and print the message instead of sending it")
	screenCmd.Flags().BoolVar(&screenPrint, "print", false, "print the results table to stdout")
	rootCmd.AddCommand(screenCmd)
}

func runScreen(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	reg := metrics.NewRegistry()
	a, err := buildApp(cfg, log, reg, !screenDryRun)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var report *core.Report
	if screenDryRun {
		report, err = a.Screen(ctx)
	} else {
		report, err = a.RunOnce(ctx)
	}

	if cfg.Metrics.Textfile != "" {
		if werr := reg.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			log.Warn("writing metrics textfile failed", zap.Error(werr))
		}
	}

	if err != nil {
		return fmt.Errorf("screen failed: %w", err)
	}

	writeOutcome(cmd.OutOrStdout(), report, screenDryRun)
	if screenPrint {
		fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
	}
	return nil
}

// writeOutcome prints the message a dry run would have sent, or one line
// per notifier with its delivery result.
func writeOutcome(w io.Writer, report *core.Report, dryRun bool) {
	if dryRun {
		fmt.Fprintln(w, notifier.Format(report))
		return
	}
	if len(report.Notifications) == 0 {
		fmt.Fprintln(w, "report not delivered: no notifiers configured")
		return
	}
	for _, n := range report.Notifications {
		fmt.Fprintln(w, deliveryLine(n))
	}
}

func deliveryLine(n core.Notification) string {
	switch {
	case n.OK:
		return fmt.Sprintf("%s: sent OK (HTTP %d)", n.Notifier, n.StatusCode)
	case n.StatusCode == 0:
		return fmt.Sprintf("%s: send failed: %s", n.Notifier, n.Error)
	case n.Body == "":
		return fmt.Sprintf("%s: send failed (HTTP %d): %s", n.Notifier, n.StatusCode, n.Error)
	default:
		return fmt.Sprintf("%s: send failed (HTTP %d): %s", n.Notifier, n.StatusCode, n.Body)
	}
}
