package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ekisa-team/voicemagic/internal/config"
	"github.com/ekisa-team/voicemagic/internal/env"
	grpcserver "github.com/ekisa-team/voicemagic/internal/server/grpc"
	httpserver "github.com/ekisa-team/voicemagic/internal/server/http"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var httpPort, grpcPort int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web page, the HTTP API and the gRPC API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, exists, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http-port") {
				cfg.Server.HTTPPort = httpPort
			}
			if cmd.Flags().Changed("grpc-port") {
				cfg.Server.GRPCPort = grpcPort
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			setupLogger(env.FromEnv(), cfg.Logging)

			return serve(cmd.Context(), opts, cfg, exists)
		},
	}

	cmd.Flags().IntVar(&httpPort, "http-port", config.DefaultHTTPPort(), "HTTP port to listen on")
	cmd.Flags().IntVar(&grpcPort, "grpc-port", config.DefaultGRPCPort(), "GRPC port to listen on")

	return cmd
}

func serve(ctx context.Context, opts *globalOptions, cfg *config.Config, watch bool) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	httpSrv := httpserver.NewServer(a.tts, httpserver.Options{
		Addr:        fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		AnalyticsID: cfg.Web.AnalyticsID,
		Metrics:     a.metrics,
	})

	if watch {
		watcher, err := config.NewWatcher(opts.configPath, opts.schemaPath, reloadHandler(cfg, a.tts, httpSrv))
		if err != nil {
			return err
		}
		defer watcher.Close()

		slog.Info("Config loaded successfully", "config", opts.configPath, "schema", opts.schemaPath)
	} else {
		slog.Info("No config file found, using defaults", "config", opts.configPath)
	}

	grpcSrv := grpcserver.NewServer(a.tts)

	grpcLis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port %d: %w", cfg.Server.GRPCPort, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(httpSrv.ListenAndServe)
	g.Go(func() error {
		return grpcSrv.Serve(grpcLis)
	})
	g.Go(func() error {
		return a.store.RunJanitor(ctx, cfg.Storage.PruneInterval, cfg.Storage.Retention)
	})
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		return errors.Join(
			httpSrv.Shutdown(shutdownCtx),
			grpcSrv.Shutdown(shutdownCtx),
		)
	})

	slog.Info("voicemagic started",
		"http_port", cfg.Server.HTTPPort,
		"grpc_port", cfg.Server.GRPCPort,
		"output_dir", a.store.Dir(),
	)

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		return err
	}

	slog.Info("voicemagic stopped")
	return nil
}

type synthesisConfigurer interface {
	Configure(cfg config.SynthesisConfig)
}

type analyticsSetter interface {
	SetAnalyticsID(id string)
}

// reloadHandler applies the hot-reloadable parts of a new config: synthesis
// limits and the analytics tag. Settings bound at startup are reported.
func reloadHandler(startup *config.Config, tts synthesisConfigurer, page analyticsSetter) func(*config.Config, error) {
	return func(next *config.Config, err error) {
		if err != nil {
			slog.Error("Failed to reload config", "error", err)
			return
		}

		if next.Synthesis.BinPath != startup.Synthesis.BinPath || next.Synthesis.Proxy != startup.Synthesis.Proxy {
			slog.Warn("edge-tts binary and proxy changes take effect after a restart")
		}
		if next.Server != startup.Server || next.Storage != startup.Storage || next.Logging != startup.Logging {
			slog.Warn("Server, storage and logging changes take effect after a restart")
		}

		tts.Configure(next.Synthesis)
		page.SetAnalyticsID(next.Web.AnalyticsID)
	}
}
