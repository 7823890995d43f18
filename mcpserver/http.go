package mcpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/rlch/neokit"
)

const shutdownTimeout = 5 * time.Second

// Handler routes the streamable HTTP transport at path, Prometheus metrics at
// /metrics and a liveness probe at /healthz.
func (s *Server) Handler(path string) http.Handler {
	if path == "" {
		path = neokit.DefaultMCPPath
	}

	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)

	r := mux.NewRouter()
	r.Handle(path, streamable)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	return r
}

// ListenAndServe serves Handler(path) on addr until ctx is done, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr, path string) error {
	if addr == "" {
		addr = neokit.DefaultMCPAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(path),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)

	go func() {
		s.logger.Info("Serving MCP over streamable HTTP", zap.String("addr", addr), zap.String("path", path))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}

// Serve runs the transport selected by cfg: "stdio" or "http".
func (s *Server) Serve(ctx context.Context, cfg neokit.MCPConfig) error {
	switch cfg.Transport {
	case "stdio":
		return s.RunStdio(ctx)
	case "", "http", "streamable-http":
		return s.ListenAndServe(ctx, cfg.Addr, cfg.Path)
	default:
		return &UnknownTransportError{Transport: cfg.Transport}
	}
}

// UnknownTransportError is returned by Serve for an unsupported transport.
type UnknownTransportError struct {
	Transport string
}

func (e *UnknownTransportError) Error() string {
	return "mcpserver: unknown transport " + e.Transport + ` (want "http" or "stdio")`
}
