package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/duynguyendang/relpat/pkg/mcp"
	"github.com/duynguyendang/relpat/pkg/server"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  "Serve the analysis API and Prometheus metrics over HTTP for every dataset under the data directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			warmup, _ := cmd.Flags().GetBool("warmup")
			schedule, _ := cmd.Flags().GetString("warmup-schedule")
			if schedule == "" {
				schedule = a.cfg.Server.WarmupSchedule
			}
			return a.serve(cmd.Context(), addr, warmup, schedule)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (overrides config)")
	cmd.Flags().Bool("warmup", false, "Classify every dataset once at startup")
	cmd.Flags().String("warmup-schedule", "", "Cron expression for periodic warm-up (overrides config)")
	return cmd
}

func (a *app) serve(parent context.Context, addr string, warmup bool, schedule string) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := a.newService(serviceOptions{readOnly: true})
	if err != nil {
		return err
	}
	defer cleanup()

	if schedule != "" {
		if err := svc.ScheduleWarmup(schedule); err != nil {
			return err
		}
	}
	if warmup {
		go func() {
			if err := svc.Warmup(ctx); err != nil {
				a.logger.Warn("startup warmup finished with errors", "error", err)
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewServer(svc).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting REST API server", "addr", addr, "dataDir", a.cfg.DataDir)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("stopping server: %w", err)
	}
	a.logger.Info("server stopped gracefully")
	return nil
}

func newMCPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analysis tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.newService(serviceOptions{readOnly: true})
			if err != nil {
				return err
			}
			defer cleanup()
			return mcp.Run(cmd.Context(), svc)
		},
	}
}
