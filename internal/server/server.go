// Package server orchestrates all components: database, whitelist service, method registry,
// dispatcher, the WebSocket endpoint, the optional COMMS (NATS) subject and the HTTP health surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"
	"go.uber.org/multierr"

	"github.com/matejonnet/dependency-analysis/internal/config"
	"github.com/matejonnet/dependency-analysis/pkg/analyser"
	"github.com/matejonnet/dependency-analysis/pkg/commsutil"
	"github.com/matejonnet/dependency-analysis/pkg/db"
	"github.com/matejonnet/dependency-analysis/pkg/dispatcher"
	"github.com/matejonnet/dependency-analysis/pkg/events"
	"github.com/matejonnet/dependency-analysis/pkg/methods"
	"github.com/matejonnet/dependency-analysis/pkg/transport"
	"github.com/matejonnet/dependency-analysis/pkg/whitelist"
)

const logPrefix = "server:server"

// shutdownTimeout bounds the graceful part of Shutdown.
const shutdownTimeout = 15 * time.Second

// Server is the dependency-analysis orchestrator.
type Server struct {
	cfg        *config.Config
	pool       *pgxpool.Pool
	nc         *comms.Conn
	ncClosed   chan struct{}
	sub        *comms.Subscription
	svc        *whitelist.Service
	registry   *methods.Registry
	disp       *dispatcher.Dispatcher
	ws         *transport.WebSocketHandler
	httpServer *http.Server
}

// SetupLogging installs the default slog text handler at the configured level.
func SetupLogging(cfg *config.Config) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
}

// Run loads configuration, starts the server, blocks until ctx is done or a shutdown signal
// arrives, then cleans up.
func Run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}
	SetupLogging(cfg)

	slog.Info(fmt.Sprintf("%s - Starting dependency-analysis", logPrefix))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	errCh := s.Start()

	slog.Info(fmt.Sprintf("%s - dependency-analysis is ready", logPrefix))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))
	case <-ctx.Done():
		slog.Info(fmt.Sprintf("%s - Context done, shutting down", logPrefix))
	case runErr = <-errCh:
		slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, runErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	err = multierr.Append(runErr, s.Shutdown(shutdownCtx))

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return err
}

// New wires every component from cfg. The database and COMMS are optional: without
// DATABASE_URL the whitelist methods answer with an internal error, and without
// COMMS_ENABLED only the WebSocket endpoint serves JSON-RPC.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}

	// Step 1: Database
	var store whitelist.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		s.pool = pool

		if cfg.RunMigrations {
			if err := migrateAndSeed(ctx, pool, cfg); err != nil {
				pool.Close()
				return nil, err
			}
		}
		store = db.NewRepository(pool)
	} else {
		slog.Warn(fmt.Sprintf("%s - DATABASE_URL not set, whitelist methods are unavailable", logPrefix))
	}

	// Step 2: COMMS connection for the RPC subject and change events
	var publisher events.EventPublisher = events.LogPublisher{}
	if cfg.COMMSEnabled {
		closed := make(chan struct{})
		var once sync.Once
		nc, err := commsutil.ConnectWithOptions(cfg.COMMSURL, cfg.COMMSName, commsutil.ConnectOptions{
			OnClosed: func() { once.Do(func() { close(closed) }) },
		})
		if err != nil {
			s.closePool()
			return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
		}
		s.nc = nc
		s.ncClosed = closed
		publisher = events.MultiPublisher{
			events.LogPublisher{},
			events.NewCommsPublisher(nc, &events.CommsPublisherOpts{ChangeSubject: cfg.ChangeEventSubject}),
		}
	}

	// Step 3: Service, registry and dispatcher
	svcConfig := whitelist.DefaultConfig()
	if len(cfg.MavenRepositories) > 0 {
		svcConfig.DefaultRepositories = cfg.MavenRepositories
	}
	s.svc = whitelist.NewService(whitelist.NewServiceParams{
		Store:     store,
		Analyser:  analyser.New(analyser.Options{CloneTimeout: cfg.SCMCloneTimeout}),
		Publisher: publisher,
		Config:    svcConfig,
	})

	reg, err := BuildRegistry(s.svc)
	if err != nil {
		s.closeComms()
		s.closePool()
		return nil, fmt.Errorf("%s - failed to build method registry: %w", logPrefix, err)
	}
	s.registry = reg
	s.disp = dispatcher.NewDispatcher(reg, dispatcher.Options{RequestTimeout: cfg.RequestTimeout})
	slog.Info(fmt.Sprintf("%s - Registered %d methods: %v", logPrefix, reg.Len(), reg.Names()))

	// Step 4: Transports
	s.ws = transport.NewWebSocketHandler(s.disp, transport.WebSocketOptions{
		ReadLimit:    cfg.WSReadLimit,
		WriteTimeout: cfg.WSWriteTimeout,
	})
	if s.nc != nil {
		subject := cfg.RPCSubject
		if subject == "" {
			subject = commsutil.SubjectRPC
		}
		sub, err := transport.SubscribeRPC(ctx, s.nc, subject, s.disp)
		if err != nil {
			s.closeComms()
			s.closePool()
			return nil, err
		}
		s.sub = sub
	}

	s.httpServer = &http.Server{Addr: cfg.HTTPAddr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	return s, nil
}

func migrateAndSeed(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config) error {
	migrations, err := db.LoadMigrations(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
	}
	if _, err := db.RunMigrations(ctx, pool, migrations); err != nil {
		return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
	}
	if err := db.SeedFromFile(ctx, pool, cfg.SeedFile, ""); err != nil {
		return fmt.Errorf("%s - failed to seed: %w", logPrefix, err)
	}
	return nil
}

// Handler returns the HTTP surface: the WebSocket endpoint plus health, readiness and method listing.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.WSPath, s.ws)
	mux.HandleFunc("/health", handleHealth(s.svc, s.cfg.HealthCheckTimeout))
	mux.HandleFunc("/ready", handleReady())
	mux.HandleFunc("/methods", handleMethods(s.registry))
	return mux
}

// Registry returns the method registry.
func (s *Server) Registry() *methods.Registry { return s.registry }

// Start serves HTTP in the background. The returned channel receives the listener error, if any.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s (JSON-RPC at %s)", logPrefix, s.cfg.HTTPAddr, s.cfg.WSPath))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown stops accepting work, closes open sessions and releases COMMS and the database.
// In-flight COMMS requests finish before the pool is closed, unless ctx expires first.
// Calling it again is a no-op apart from the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs error
	if s.sub != nil {
		errs = multierr.Append(errs, s.sub.Drain())
		s.sub = nil
	}
	if s.ws != nil {
		errs = multierr.Append(errs, s.ws.Close(ctx))
	}
	if s.httpServer != nil {
		errs = multierr.Append(errs, s.httpServer.Shutdown(ctx))
	}
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			errs = multierr.Append(errs, err)
		} else {
			select {
			case <-s.ncClosed:
			case <-ctx.Done():
				errs = multierr.Append(errs, fmt.Errorf("%s - COMMS drain: %w", logPrefix, ctx.Err()))
				s.nc.Close()
			}
		}
		s.nc = nil
	}
	s.closePool()
	return errs
}

func (s *Server) closeComms() {
	if s.nc != nil {
		s.nc.Close()
		s.nc = nil
	}
}

func (s *Server) closePool() {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}
