package main

import (
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/xela07ax/agentvault/internal/connectors"
	"github.com/xela07ax/agentvault/internal/infra"
)

// newBackendCmd serves a simulated pool over the SwapBackend gRPC service,
// for running the vault against a remote backend locally.
func newBackendCmd() *cobra.Command {
	var (
		listen   string
		num, den uint64
		latency  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Run a simulated swap backend over gRPC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := infra.NewLogger(infra.LoggerConfig{Level: "info", Format: "console"})
			if err != nil {
				return err
			}
			defer logger.Sync()

			pool := connectors.NewMockPool(num, den).WithLatency(latency)
			srv := grpc.NewServer()
			connectors.RegisterSwapBackend(srv, pool)

			lis, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("failed to listen: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				srv.GracefulStop()
			}()

			logger.Info("swap backend started", zap.String("addr", lis.Addr().String()),
				zap.Uint64("rate_num", num), zap.Uint64("rate_den", den))
			return srv.Serve(lis)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":50051", "gRPC listen address")
	cmd.Flags().Uint64Var(&num, "rate-num", 1, "rate numerator")
	cmd.Flags().Uint64Var(&den, "rate-den", 1, "rate denominator")
	cmd.Flags().DurationVar(&latency, "latency", 0, "simulated execution latency")
	return cmd
}
