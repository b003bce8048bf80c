package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/xela07ax/agentvault/internal/audit"
	"github.com/xela07ax/agentvault/internal/bootstrap"
	"github.com/xela07ax/agentvault/internal/connectors"
	"github.com/xela07ax/agentvault/internal/console/handler"
	"github.com/xela07ax/agentvault/internal/console/server"
	"github.com/xela07ax/agentvault/internal/console/service"
	"github.com/xela07ax/agentvault/internal/custody"
	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/engine"
	"github.com/xela07ax/agentvault/internal/infra"
	"github.com/xela07ax/agentvault/internal/infra/auth"
	"github.com/xela07ax/agentvault/internal/repository/postgres"
	"github.com/xela07ax/agentvault/internal/risk"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the vault with its HTTP console and gRPC agent gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := infra.LoadConfigFrom(*configPath)
			if err != nil {
				return err
			}
			logger, err := infra.NewLogger(cfg.Logger)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(appCtx context.Context, cfg *infra.Config, logger *zap.Logger) error {
	owner, err := requireAddress("engine.owner", cfg.Engine.Owner)
	if err != nil {
		return err
	}

	// 1. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	// 2. Infrastructure, every piece optional
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(appCtx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	var repo *postgres.Repo
	if cfg.Database.URL != "" {
		if repo, err = postgres.New(appCtx, cfg.Database); err != nil {
			return err
		}
		defer repo.Close()
		if cfg.Database.Migrate {
			if err := repo.Migrate(appCtx); err != nil {
				return err
			}
		}
	}

	// 3. Audit trail: postgres and AMQP when configured, the log otherwise
	var sinks audit.MultiStorage
	if repo != nil {
		sinks = append(sinks, repo)
	}
	if cfg.AMQP.URL != "" {
		pub, err := audit.NewAMQPPublisher(audit.AMQPConfig{
			URL:      cfg.AMQP.URL,
			Exchange: cfg.AMQP.Exchange,
			Durable:  cfg.AMQP.Durable,
		})
		if err != nil {
			return err
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, audit.LogStorage{Logf: logger.Sugar().Debugf})
	}
	agentFS := audit.NewAgentFS(sinks, logger, audit.Options{
		BufferSize:    cfg.Engine.AuditBufferSize,
		BatchSize:     cfg.Engine.AuditBatchSize,
		FlushInterval: cfg.Engine.AuditFlushInterval,
		OnFill:        func(n int) { metrics.AuditBufferFill.Set(float64(n)) },
	})
	agentFS.Start()
	defer agentFS.Stop()

	// 4. Vault core
	var flagSource engine.FlagSource
	if repo != nil {
		flagSource = repo
	}
	quarantine := engine.NewQuarantineManager(rdb, flagSource, logger)
	sandbox := engine.NewSandboxManager(rdb, flagSource, logger)

	var threshold uint256.Int
	if cfg.Engine.ApprovalThreshold != "" {
		if threshold, err = domain.ParseUnits(cfg.Engine.ApprovalThreshold); err != nil {
			return fmt.Errorf("engine.approval_threshold: %w", err)
		}
	}

	tok := custody.NewMemoryToken(cfg.Engine.Asset)
	vault, err := engine.NewVault(engine.Deps{
		Owner:      owner,
		Custody:    tok,
		Journal:    audit.NewJournal(agentFS).WithCapacity(cfg.Engine.JournalCapacity),
		Auditor:    agentFS,
		Analyzer:   risk.NewAnalyzer(quarantine, threshold, logger),
		Sandbox:    sandbox,
		Quarantine: quarantine,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	// 5. Execution backend behind the reliability wrapper
	backend, closeBackend, err := dialBackend(cfg.Engine.Backend)
	if err != nil {
		return err
	}
	defer closeBackend()
	bc := cfg.Engine.Backend
	safe := engine.NewReliabilityWrapper(backend, engine.ReliabilitySettings{
		Name:          bc.Kind,
		CBMaxRequests: bc.CBMaxRequests,
		CBInterval:    bc.CBInterval,
		CBTimeout:     bc.CBTimeout,
		CBFailures:    bc.CBFailures,
		RateLimit:     bc.RateLimit,
		RateBurst:     bc.RateBurst,
		Attempts:      bc.Attempts,
		CallTimeout:   bc.CallTimeout,
	}, metrics)
	if err := vault.SetExecutionBackend(appCtx, owner, safe, bc.Kind); err != nil {
		return err
	}

	if cfg.Engine.Controller != "" {
		controller, err := requireAddress("engine.controller", cfg.Engine.Controller)
		if err != nil {
			return err
		}
		if err := vault.SetController(appCtx, owner, controller); err != nil {
			return err
		}
	}

	if cfg.Bootstrap.Manifest != "" {
		m, err := bootstrap.Load(cfg.Bootstrap.Manifest)
		if err != nil {
			return err
		}
		res, err := bootstrap.Apply(appCtx, vault, owner, m, bootstrap.Options{
			Mint:       tok.Mint,
			Quarantine: quarantine,
			Sandbox:    sandbox,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		logger.Info("manifest applied", zap.String("path", cfg.Bootstrap.Manifest),
			zap.Int("routes", len(res.Routes)), zap.Int("agents", res.Agents))
	}

	// 6. Control plane: warm state, then follow operator signals
	killSwitch := engine.NewKillSwitchListener(vault, rdb, flagSource, logger)
	for name, l := range map[string]interface {
		Init(context.Context) error
		StartListener(context.Context)
	}{"kill-switch": killSwitch, "quarantine": quarantine, "sandbox": sandbox} {
		if err := l.Init(appCtx); err != nil {
			return fmt.Errorf("failed to init %s manager: %w", name, err)
		}
		go l.StartListener(appCtx)
	}

	// 7. Console services
	var (
		flagStore     service.FlagStore
		approvalStore service.ApprovalStore
		auditStore    service.AuditLogProvider
		users         service.AuthProvider
	)
	if repo != nil {
		flagStore, approvalStore, auditStore, users = repo, repo, repo, repo
	}
	approvals := service.NewApprovalService(approvalStore, rdb, logger)
	vault.AddObserver(approvals)
	flags := service.NewAgentService(rdb, flagStore, map[string]service.FlagSetter{
		engine.FlagBlocked:    killSwitch,
		engine.FlagQuarantine: quarantine,
		engine.FlagSandbox:    sandbox,
	}, logger)

	validator, err := newValidator(cfg.Auth, users)
	if err != nil {
		return err
	}

	console := server.NewConsoleServer(logger, validator, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), server.Handlers{
		Auth:     handler.NewAuthHandler(validator),
		Ledger:   handler.NewLedgerHandler(vault),
		Swap:     handler.NewSwapHandler(vault, logger),
		Agents:   handler.NewAgentHandler(vault, flags, logger),
		Routes:   handler.NewRouteHandler(vault),
		Approval: handler.NewApprovalHandler(vault, approvals),
		Audit:    handler.NewAuditHandler(vault, service.NewAuditService(auditStore)),
	})
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      console,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 8. Agent gateway
	var grpcSrv *grpc.Server
	if cfg.Server.GRPCPort != 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
		if err != nil {
			return fmt.Errorf("failed to listen gRPC: %w", err)
		}
		grpcSrv = grpc.NewServer(grpc.UnaryInterceptor(engine.UnaryAuthInterceptor(validator)))
		engine.NewGRPCGatewayServer(vault).Register(grpcSrv)
		go func() {
			logger.Info("agent gateway started", zap.String("addr", lis.Addr().String()))
			if err := grpcSrv.Serve(lis); err != nil {
				logger.Error("gRPC gateway stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("vault console started", zap.String("addr", srv.Addr), zap.String("owner", owner.Hex()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 9. Graceful shutdown
	select {
	case <-appCtx.Done():
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("vault stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("console shutdown failed", zap.Error(err))
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	logger.Info("vault exited properly", zap.Int64("audit_dropped", agentFS.Dropped()))
	return nil
}

// dialBackend builds the raw swap backend named by cfg.Kind.
func dialBackend(cfg infra.BackendConfig) (engine.ExecutionBackend, func(), error) {
	switch cfg.Kind {
	case "", "mock":
		return connectors.NewMockPool(cfg.RateNum, cfg.RateDen), func() {}, nil
	case "grpc":
		if cfg.Target == "" {
			return nil, nil, errors.New("engine.backend.target is required for the grpc backend")
		}
		conn, err := grpc.NewClient(cfg.Target, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to swap backend: %w", err)
		}
		return connectors.NewGRPCAdapter(conn, cfg.CallTimeout), func() { conn.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend kind %q", cfg.Kind)
	}
}

// newValidator builds the token issuer. Without a user store it still
// verifies tokens but rejects every login.
func newValidator(cfg infra.AuthConfig, users service.AuthProvider) (*service.AuthService, error) {
	if len(cfg.PrivateKey) == 0 {
		return nil, errors.New("auth: private key is required (auth.private_key_path or AUTH_PRIVATE_KEY_DATA)")
	}
	key, err := auth.ParseRSAPrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("auth private key: %w", err)
	}
	return service.NewAuthService(users, key, cfg.TokenTTL), nil
}

func requireAddress(key, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: malformed address %q", key, s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%s: %w", key, domain.ErrAddressZero)
	}
	return addr, nil
}
