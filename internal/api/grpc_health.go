package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// ServiceName is the gRPC health service name reported alongside "".
const ServiceName = "drillbot"

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
	errNotServing               = errors.New("service not serving")
)

// GRPCHealth serves the standard grpc.health.v1 service. Its status follows
// periodic database pings.
type GRPCHealth struct {
	server   *grpc.Server
	health   *health.Server
	db       Pinger
	interval time.Duration
	logger   *slog.Logger
}

// NewGRPCHealth creates the health server. A zero interval uses 15s.
func NewGRPCHealth(db Pinger, interval time.Duration, logger *slog.Logger) *GRPCHealth {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &GRPCHealth{server: srv, health: hs, db: db, interval: interval, logger: logger}
}

// Serve probes the database and serves on lis until ctx is cancelled.
func (g *GRPCHealth) Serve(ctx context.Context, lis net.Listener) error {
	g.probe(ctx)
	go g.probeLoop(ctx)
	go func() {
		<-ctx.Done()
		g.health.Shutdown()
		g.server.GracefulStop()
	}()

	g.logger.Info("gRPC health listening", "addr", lis.Addr().String())
	if err := g.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc health serve: %w", err)
	}
	return nil
}

func (g *GRPCHealth) probeLoop(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.probe(ctx)
		}
	}
}

func (g *GRPCHealth) probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, defaultHealthCheckTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := g.db.Ping(pingCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		g.logger.Warn("Database ping failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(ServiceName, status)
}

// ProbeConfig configures a health probe client.
type ProbeConfig struct {
	Address          string
	Service          string
	Timeout          time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	// DialOptions are appended to the defaults.
	DialOptions []grpc.DialOption
}

// DefaultProbeConfig returns defaults for probing addr.
func DefaultProbeConfig(addr string) ProbeConfig {
	return ProbeConfig{
		Address:          addr,
		Service:          ServiceName,
		Timeout:          5 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// Probe connects to a health server and returns nil only when it reports
// SERVING for cfg.Service.
func Probe(ctx context.Context, cfg ProbeConfig) error {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	}, cfg.DialOptions...)

	// Build client connection (no network I/O yet).
	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return fmt.Errorf("dial health server at %s: %w", cfg.Address, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := waitForReady(ctx, conn); err != nil {
		return fmt.Errorf("health server at %s not ready: %w", cfg.Address, err)
	}

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: cfg.Service})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", errNotServing, resp.GetStatus())
	}
	return nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}
