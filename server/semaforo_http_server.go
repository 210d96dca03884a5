package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const SHUTDOWN_TIMEOUT = 5 * time.Second

type SemaforoHttpServer struct {
	router    *Router
	muxRouter *mux.Router
	addr      string
}

func NewSemaforoHttpServer(router *Router, muxRouter *mux.Router, addr string) *SemaforoHttpServer {
	return &SemaforoHttpServer{
		router:    router,
		muxRouter: muxRouter,
		addr:      addr,
	}
}

// Start serves until ctx is done or the process gets SIGINT/SIGTERM, then
// shuts down gracefully.
func (s *SemaforoHttpServer) Start(ctx context.Context) error {
	s.router.RegisterRoutes()

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.muxRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("component", "server").Str("addr", s.addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Str("component", "server").Msg("shutting down the server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Str("component", "server").Msg("server exiting")
	return nil
}
