package mcp

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/viant/mcpbroker/config"
	"github.com/viant/mcpbroker/logging"
	"github.com/viant/mcpbroker/server"
)

const shutdownTimeout = 10 * time.Second

// Run parses args and serves until ctx is done or the transport ends.
func Run(ctx context.Context, args []string) error {
	options := &Options{}
	if _, err := flags.ParseArgs(options, args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}
	cfg, err := config.Load(ctx, options.ConfigURL, os.LookupEnv)
	if err != nil {
		return err
	}
	if options.LogLevel != "" {
		cfg.Logging.Level = options.LogLevel
	}
	logger, err := logging.New(cfg.Name, cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	srv, err := NewServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if options.Transport == TransportStdio {
		return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
	}
	return serveHTTP(ctx, srv, options.Addr, logger)
}

func serveHTTP(ctx context.Context, srv *server.Server, addr string, logger zerolog.Logger) error {
	httpServer := srv.HTTP(ctx, addr)
	errs := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Bool("tls", srv.UseTLS()).Msg("listening")
		if srv.UseTLS() {
			errs <- httpServer.ListenAndServeTLS("", "")
			return
		}
		errs <- httpServer.ListenAndServe()
	}()
	select {
	case err := <-errs:
		_ = srv.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down")
	_ = srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
