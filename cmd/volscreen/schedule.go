package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/newthinker/volscreen/internal/metrics"
	"github.com/newthinker/volscreen/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the screener on a cron schedule and serve /metrics",
	RunE:  runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	reg := metrics.NewRegistry(metrics.WithRuntimeMetrics())
	a, err := buildApp(cfg, log, reg, true)
	if err != nil {
		return err
	}

	var opts []scheduler.Option
	if cfg.Schedule.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Schedule.Timezone)
		if err != nil {
			return fmt.Errorf("loading timezone: %w", err)
		}
		opts = append(opts, scheduler.WithLocation(loc))
	}

	sched, err := scheduler.New(cfg.Schedule.Cron, func(ctx context.Context) error {
		_, err := a.RunOnce(ctx)
		return err
	}, log, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if cfg.Metrics.Listen != "" {
		server = newMetricsServer(cfg.Metrics.Listen, reg, log)
		go func() {
			log.Info("metrics server listening", zap.String("addr", cfg.Metrics.Listen))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	var startup sync.WaitGroup
	sched.Start(ctx)
	if cfg.Schedule.RunOnStart {
		runOnStart(ctx, &startup, sched)
	}

	<-ctx.Done()
	log.Info("shutting down volscreen scheduler")

	sched.Stop()
	startup.Wait()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
	return nil
}

// runOnStart fires one run immediately. The caller waits on wg before
// exiting so an in-progress startup run is not abandoned.
func runOnStart(ctx context.Context, wg *sync.WaitGroup, sched *scheduler.Scheduler) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = sched.RunNow(ctx)
	}()
}

func newMetricsServer(addr string, reg *metrics.Registry, log *zap.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           metrics.NewHandler(reg, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
