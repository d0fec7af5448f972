package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vusplatform/varspace/internal/annotate"
	"github.com/vusplatform/varspace/internal/config"
	"github.com/vusplatform/varspace/internal/domain/variant"
	"github.com/vusplatform/varspace/internal/journal"
	"github.com/vusplatform/varspace/internal/liftover"
	"github.com/vusplatform/varspace/internal/logging"
	"github.com/vusplatform/varspace/internal/network"
	"github.com/vusplatform/varspace/internal/storage"
	"github.com/vusplatform/varspace/internal/workspace"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "varspace",
		Short: "Variant workspace data engine",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the workspace API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.AddCommand(serve)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	_, closeLogs := logging.Setup(logging.Options{Level: cfg.SlogLevel(), SeqURL: cfg.SeqURL})
	defer closeLogs()

	slog.Info("starting varspace", "workspace_root", cfg.WorkspaceRoot)

	store, err := storage.NewStore(cfg.WorkspaceRoot)
	if err != nil {
		return err
	}

	opts := []workspace.Option{}
	if cfg.SchemaFile != "" {
		schema, err := variant.LoadSchemaFile(cfg.SchemaFile)
		if err != nil {
			return err
		}
		opts = append(opts, workspace.WithSchema(schema))
	}
	if cfg.LiftoverMap != "" {
		lift, err := liftover.Load(cfg.LiftoverMap)
		if err != nil {
			return err
		}
		opts = append(opts, workspace.WithLiftover(lift))
	}
	if cfg.JournalFile != "" {
		j, err := journal.Open(cfg.JournalFile)
		if err != nil {
			return err
		}
		defer j.Close()
		opts = append(opts, workspace.WithJournal(j))
	}
	for _, p := range buildProviders(cfg.Providers) {
		opts = append(opts, workspace.WithProvider(p))
	}

	engine := workspace.New(store, opts...)
	engine.AddObserver(workspace.NewLoggingObserver())

	server := network.NewServer(engine)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(cfg.ListenAddr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildProviders registers every annotation tool the config enables, each
// behind the shared score cache.
func buildProviders(cfg config.Providers) []annotate.Provider {
	var providers []annotate.Provider
	if cfg.SpliceCommand != "" {
		providers = append(providers, &annotate.SpliceProvider{
			Command:    cfg.SpliceCommand,
			Fasta:      cfg.SpliceFasta,
			Annotation: cfg.SpliceAnnotation,
			WorkDir:    cfg.SpliceWorkDir,
		})
	}
	if cfg.CaddEndpoint != "" {
		providers = append(providers, &annotate.RemoteProvider{
			ToolName: "cadd",
			Endpoint: cfg.CaddEndpoint,
			Client:   &http.Client{Timeout: 30 * time.Second},
		})
	}
	if cfg.RevelPath != "" {
		providers = append(providers, &annotate.LookupProvider{
			ToolName: "revel",
			Path:     cfg.RevelPath,
		})
	}
	if cfg.CacheTTL > 0 {
		for i, p := range providers {
			providers[i] = annotate.NewCachedProvider(p, cfg.CacheTTL)
		}
	}
	return providers
}
