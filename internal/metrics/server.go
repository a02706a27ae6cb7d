package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the engine's Prometheus metrics over HTTP.
type Server struct {
	srv *http.Server
}

// NewServer builds a metrics server on the provided listen address. A zero
// port disables the server; Start and Stop on the nil result are no-ops.
func NewServer(host string, port int) *Server {
	if port == 0 {
		return nil
	}
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves metrics until shutdown.
func (s *Server) Start() error {
	if s == nil {
		return nil
	}
	return s.srv.ListenAndServe()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
