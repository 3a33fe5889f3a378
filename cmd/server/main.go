package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/xtding233/outcome-engine/internal/app"
	"github.com/xtding233/outcome-engine/internal/config"
	"github.com/xtding233/outcome-engine/internal/httpapi"
	"github.com/xtding233/outcome-engine/internal/rpc"
	"github.com/xtding233/outcome-engine/internal/telemetry"
)

func main() {
	s, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("load config")
	}
	log := s.Logger(os.Stderr)
	if err := run(s, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(s config.Settings, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "outcome-engine", s.OTELEndpoint)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, s, log)
	if err != nil {
		return err
	}
	defer a.Close()

	httpSrv := &http.Server{
		Addr:    s.HTTPAddr,
		Handler: httpapi.New(a.Catalog, a.Sessions, log).Routes(),
	}
	grpcSrv := rpc.NewServer(&rpc.Service{Variants: a.Catalog, Sessions: a.Sessions, Logger: log})
	lis, err := net.Listen("tcp", s.GRPCAddr)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Watch(ctx)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", s.HTTPAddr).Msg("http listening")
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", s.GRPCAddr).Msg("grpc listening")
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
		defer cancel()
		grpcSrv.GracefulStop()
		err := httpSrv.Shutdown(sctx)
		return errors.Join(err, shutdownTracing(sctx))
	})
	return g.Wait()
}
