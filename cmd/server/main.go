package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/inboxcrm/connector/credentials"
	"github.com/inboxcrm/connector/credentials/tokencache"
	"github.com/inboxcrm/connector/crm/dedup"
	"github.com/inboxcrm/connector/internal/config"
	"github.com/inboxcrm/connector/internal/kvstore"
	"github.com/inboxcrm/connector/profiles"
	"github.com/inboxcrm/connector/server"
	"github.com/inboxcrm/connector/sessions"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	for {
		if err := run(logger); err != nil {
			logger.Fatal().Err(err).Msg("error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	logger.Info().Msg("server stopped")
}

func run(logger zerolog.Logger) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()
	c := config.New()
	displayAppname(c.GetAppName())

	handler, err := buildServer(c, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(httpServer, logger)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildServer(c config.Config, logger zerolog.Logger) (*server.Server, error) {
	registry, err := profiles.LoadRegistry(c.GetProfilesFile())
	if err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}

	tokenDir, err := kvstore.NewFileStore(filepath.Join(c.GetDataFolder(), "tokens"))
	if err != nil {
		return nil, fmt.Errorf("token store: %w", err)
	}
	sessionDir, err := kvstore.NewFileStore(filepath.Join(c.GetDataFolder(), "sessions"))
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	dedupDir, err := kvstore.NewFileStore(filepath.Join(c.GetDataFolder(), "dedup"))
	if err != nil {
		return nil, fmt.Errorf("dedup store: %w", err)
	}

	tokenCache := tokencache.NewTiered(tokencache.NewMemoryCache(), tokencache.NewStoreCache(tokenDir))
	provider, err := credentials.NewProvider(tokenCache, logger)
	if err != nil {
		return nil, err
	}
	sessionService, err := sessions.NewService(
		sessions.NewKVStore(sessionDir),
		provider,
		c.GetSessionSigningKey(),
		logger,
		sessions.WithLifetime(c.GetSessionLifetime()),
	)
	if err != nil {
		return nil, err
	}

	return server.New(c, server.Deps{
		Registry:    registry,
		Sessions:    sessionService,
		Credentials: provider,
		Dedup:       dedup.NewStore(dedupDir),
	}, logger)
}

func listenAndServe(httpServer *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
