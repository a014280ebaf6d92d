package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"schoolinfra/internal"
	"schoolinfra/internal/config"
	"schoolinfra/internal/container"
	"schoolinfra/ui"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment variables from .env file
	envErr := godotenv.Load()

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logCfg := internal.LogConfig{Level: appConfig.Log.Level, Format: appConfig.Log.Format}
	if err := internal.InitLogger(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zap.L().Sync() //nolint:errcheck
	if envErr != nil {
		zap.L().Info("no .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, appConfig); err != nil {
		internal.LogError("server stopped with error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, appConfig *config.Config) error {
	// Create dependency injection container
	appContainer, err := container.New(appConfig)
	if err != nil {
		return err
	}
	defer appContainer.Shutdown(context.Background()) //nolint:errcheck

	// The database is optional unless results are served from it
	if appConfig.Database.URL != "" {
		if err := appContainer.InitWithDatabase(ctx); err != nil {
			return err
		}
	}

	server, err := ui.NewServer(ui.ServerConfig{
		Port:       appConfig.Server.Port,
		GinMode:    appConfig.Server.GinMode,
		ReportPath: appConfig.Paths.ReportPath,
	}, appContainer)
	if err != nil {
		return err
	}

	servers := []*http.Server{server.HTTPServer()}
	if appConfig.Profiling.Enabled {
		admin := ui.NewApp(appContainer, appContainer.ResultRepo)
		servers = append(servers, admin.HTTPServer(ui.AppConfig{Port: appConfig.Profiling.Port}))
		zap.L().Info("admin server enabled",
			zap.String("port", appConfig.Profiling.Port),
			zap.String("pprof", "http://localhost:"+appConfig.Profiling.Port+"/debug/pprof/"))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			zap.L().Info("server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown failed", zap.String("addr", srv.Addr), zap.Error(err))
			}
		}
		return nil
	})

	return g.Wait()
}
