package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"assistanthub/internal/assistanthub/config"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd starts the HTTP API.
// Usage: assistanthub serve --addr :8080
type ServeCmd struct {
	Addr string `short:"a" long:"addr" description:"listen address, overrides server.addr"`

	root *Options
}

func (s *ServeCmd) Execute(_ []string) error {
	cfg, err := s.root.load()
	if err != nil {
		return err
	}
	if addr := strings.TrimSpace(s.Addr); addr != "" {
		cfg.Server.Addr = addr
	}
	c, err := Build(cfg, BuildOptions{})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, c)
}

// Serve runs the scheduler and the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, c *Components) error {
	srv := &http.Server{
		Addr:              c.Config.Server.Addr,
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Scheduler.Run(ctx)
	})
	g.Go(func() error {
		log.Printf("%s listening: addr=%s model=%s", config.LogPrefix, srv.Addr, c.Config.Model.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Printf("%s shutting down...", config.LogPrefix)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
