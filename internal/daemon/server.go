package daemon

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tekflox/inbox/internal/httpapi"
	"go.uber.org/zap"
)

// Server manages the local HTTP API lifecycle for a profile daemon.
type Server struct {
	httpServer *http.Server
	listen     string
	logger     *zap.Logger
}

// NewServer creates the local API server bound to the configured loopback
// address.
func NewServer(p Params, logger *zap.Logger, api *httpapi.Server) *Server {
	listen := p.Listen
	if listen == "" {
		listen = p.Config.APIListen
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              listen,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		listen: listen,
		logger: logger,
	}
}

// Start begins serving API requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("local API listening", zap.String("addr", s.listen))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop performs a graceful shutdown.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("local API stopping")
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("shutdown", zap.Error(err))
	}
}
