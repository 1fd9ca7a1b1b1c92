package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/ecoprog/internal/ports/primary"
	"github.com/example/ecoprog/internal/ports/secondary"
	"github.com/example/ecoprog/internal/wire"
)

// OutboxCmd returns the signal outbox command.
func OutboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Deliver and inspect progression signals",
		Long: `Progression signals are written to the outbox in the same transaction as the
state change that produced them, then delivered at least once to subscribers.`,
	}

	dispatchCmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Deliver due signals",
		Long: `Deliver due signals to every subscriber. Without --once, runs until interrupted
and serves Prometheus metrics on --metrics-addr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			once, _ := cmd.Flags().GetBool("once")
			if once {
				return wire.OutboxAdapter().DispatchOnce(NewContext())
			}

			addr, _ := cmd.Flags().GetString("metrics-addr")
			if !cmd.Flags().Changed("metrics-addr") {
				addr = wire.Config().Metrics.Addr
			}

			ctx, stop := signal.NotifyContext(NewContext(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDispatcher(ctx, wire.OutboxService(), addr)
		},
	}
	dispatchCmd.Flags().Bool("once", false, "Deliver one batch and exit")
	dispatchCmd.Flags().String("metrics-addr", "", "Metrics listen address (empty disables; default from config)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List outbox signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			school, _ := cmd.Flags().GetString("school")
			limit, _ := cmd.Flags().GetInt("limit")
			return wire.OutboxAdapter().List(NewContext(), primary.SignalFilters{
				Status:   status,
				SchoolID: school,
				Limit:    limit,
			})
		},
	}
	listCmd.Flags().String("status", "", fmt.Sprintf("Filter by status (%s, %s, %s, %s)",
		secondary.SignalStatusPending, secondary.SignalStatusLeased, secondary.SignalStatusSucceeded, secondary.SignalStatusDead))
	listCmd.Flags().String("school", "", "Filter by school")
	listCmd.Flags().IntP("limit", "n", 50, "Maximum rows")

	cmd.AddCommand(dispatchCmd, listCmd)
	return cmd
}

// runDispatcher runs the delivery loop and, when addr is set, the metrics
// listener until ctx is cancelled or either fails.
func runDispatcher(ctx context.Context, outbox primary.OutboxService, addr string) error {
	logger := wire.Logger()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("dispatcher started")
		return outbox.Run(ctx)
	})

	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", wire.Metrics().Handler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("metrics listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
