package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RayZar23/ton-nft-market1/internal/platform/logger"
)

type Server struct {
	httpServer *http.Server
	log        logger.Logger
	port       string
}

func NewServer(log logger.Logger, port string, readTimeout, writeTimeout time.Duration, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + port,
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		log:  log,
		port: port,
	}
}

func (s *Server) Start() error {
	s.log.Infof("HTTP server listening on port %s", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
