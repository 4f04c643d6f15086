package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/yojana/internal/cache"
	"github.com/ppiankov/yojana/internal/flow"
	"github.com/ppiankov/yojana/internal/logger"
	"github.com/ppiankov/yojana/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Server is the onboarding API server
type Server struct {
	Engine *gin.Engine
	store  cache.Store
	addr   string
	log    *zap.Logger
}

// New wires a server around resolver using the server settings in cfg
func New(cfg *model.Config, resolver flow.Resolver, aiEnabled bool, log *zap.Logger) *Server {
	log = logger.OrNop(log).Named("server")

	if cfg.Server.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	store := cache.NewMemoryStore(cfg.Server.SessionTTL, cfg.Server.SessionTTL/2)
	newController := func() *flow.Controller {
		return flow.New(resolver,
			flow.WithMinResolving(cfg.Flow.MinResolving),
			flow.WithLogger(log))
	}

	engine := NewRouter(RouterConfig{
		SessionHandler: NewSessionHandler(store, newController, cfg.Server.MaxWait, log),
		AIEnabled:      aiEnabled,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Logger:         log,
	})

	return &Server{Engine: engine, store: store, addr: cfg.Server.Addr, log: log}
}

// Run serves until ctx is cancelled, then drains connections and closes all sessions
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	defer s.store.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", s.addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
