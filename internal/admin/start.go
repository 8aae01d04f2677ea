package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/fpt/polyglot/pkg/logger"
)

// Handler returns the admin procedures behind an h2c handler so gRPC
// clients can connect without TLS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Mount(mux)
	return h2c.NewHandler(mux, &http2.Server{})
}

// StartServer serves the admin RPC on addr and blocks until ctx is cancelled.
func StartServer(ctx context.Context, addr string, s *Server) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.InfoWithIntention(logger.IntentionStatus, "Admin RPC listening", "addr", addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "admin server error")
	}
	return nil
}
