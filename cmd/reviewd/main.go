package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ismoil793/mega-miyya/internal/adapter/cli"
	githubadapter "github.com/ismoil793/mega-miyya/internal/adapter/github"
	"github.com/ismoil793/mega-miyya/internal/adapter/githubapp"
	"github.com/ismoil793/mega-miyya/internal/adapter/llm/anthropic"
	"github.com/ismoil793/mega-miyya/internal/adapter/llm/openai"
	"github.com/ismoil793/mega-miyya/internal/adapter/llm/static"
	"github.com/ismoil793/mega-miyya/internal/adapter/observability"
	storeAdapter "github.com/ismoil793/mega-miyya/internal/adapter/store"
	"github.com/ismoil793/mega-miyya/internal/adapter/store/sqlite"
	"github.com/ismoil793/mega-miyya/internal/config"
	"github.com/ismoil793/mega-miyya/internal/server"
	"github.com/ismoil793/mega-miyya/internal/store"
	"github.com/ismoil793/mega-miyya/internal/usecase/review"
	"github.com/ismoil793/mega-miyya/version"
)

const defaultAPIBaseURL = "https://api.github.com"

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "miyya",
		EnvPrefix:   "MIYYA",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logger := observability.NewStructuredLogger(
		observability.ParseLevel(cfg.Observability.Logging.Level),
		observability.ParseFormat(cfg.Observability.Logging.Format),
		cfg.Observability.Logging.RedactSecrets,
	)

	generator, err := buildGenerator(cfg)
	if err != nil {
		return err
	}

	storeDir := filepath.Dir(cfg.Store.Path)
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	sqliteStore, err := sqlite.NewStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer sqliteStore.Close()

	codeHost := githubadapter.NewClient()
	if cfg.GitHub.APIBaseURL != "" && cfg.GitHub.APIBaseURL != defaultAPIBaseURL {
		codeHost.SetBaseURL(cfg.GitHub.APIBaseURL)
	}

	deps := review.OrchestratorDeps{
		CodeHost:      codeHost,
		Generator:     generator,
		Store:         storeAdapter.NewBridge(sqliteStore),
		Logger:        logger,
		FallbackToken: cfg.GitHub.Token,
		MaxFileChars:  cfg.Review.MaxFileChars,
		MaxTokens:     cfg.Review.MaxTokens,
	}

	// App credentials are optional; without them every API call uses the
	// personal token fallback.
	var resolver *githubapp.Resolver
	if cfg.GitHub.AppID != 0 && cfg.GitHub.PrivateKey != "" {
		signer, err := githubapp.NewSigner(cfg.GitHub.AppID, []byte(cfg.GitHub.PrivateKey))
		if err != nil {
			return fmt.Errorf("github app credentials: %w", err)
		}
		resolver = githubapp.NewResolver(signer)
		exchanger := githubapp.NewExchanger(signer)
		if cfg.GitHub.APIBaseURL != "" && cfg.GitHub.APIBaseURL != defaultAPIBaseURL {
			resolver.SetBaseURL(cfg.GitHub.APIBaseURL)
			exchanger.SetBaseURL(cfg.GitHub.APIBaseURL)
		}
		deps.Installations = resolver
		deps.Tokens = exchanger
	} else if cfg.GitHub.Token == "" {
		return errors.New("no GitHub credentials configured: set github.appID and a private key, or github.token")
	}

	orchestrator := review.NewOrchestrator(deps)

	serverDeps := server.Deps{
		Handler:       orchestrator,
		Logger:        logger,
		WebhookSecret: cfg.GitHub.WebhookSecret,
	}
	if resolver != nil {
		serverDeps.Cache = resolver
	}
	srv := server.New(cfg.Server.Addr, serverDeps)

	root := cli.NewRootCommand(cli.Dependencies{
		Server: &serverRunner{
			server:          srv,
			addr:            cfg.Server.Addr,
			shutdownTimeout: parseShutdownTimeout(cfg.Server.ShutdownTimeout),
		},
		Accounts: &accountAdmin{store: sqliteStore},
		Version:  version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func buildGenerator(cfg config.Config) (review.Generator, error) {
	name := cfg.Review.Provider
	providerCfg, ok := cfg.Providers[name]
	if !ok || !providerCfg.Enabled {
		return nil, fmt.Errorf("review provider %q is not configured or not enabled", name)
	}

	switch name {
	case "openai":
		if providerCfg.APIKey == "" {
			return nil, errors.New("openai provider requires an API key")
		}
		client := openai.NewHTTPClient(providerCfg.APIKey, providerCfg.Model)
		if providerCfg.BaseURL != "" {
			client.SetBaseURL(providerCfg.BaseURL)
		}
		return openai.NewProvider(client), nil
	case "anthropic":
		if providerCfg.APIKey == "" {
			return nil, errors.New("anthropic provider requires an API key")
		}
		client := anthropic.NewHTTPClient(providerCfg.APIKey, providerCfg.Model)
		if providerCfg.BaseURL != "" {
			client.SetBaseURL(providerCfg.BaseURL)
		}
		return anthropic.NewProvider(client), nil
	case "static":
		return static.NewProvider(providerCfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported review provider %q", name)
	}
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "miyya"))
	}
	return paths
}

func parseShutdownTimeout(s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

// serverRunner adapts the HTTP server to the CLI's ServerRunner port with
// signal-driven graceful shutdown.
type serverRunner struct {
	server          *server.Server
	addr            string
	shutdownTimeout time.Duration
}

func (r *serverRunner) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", r.addr)
		errCh <- r.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), r.shutdownTimeout)
	defer cancel()
	return r.server.Shutdown(shutdownCtx)
}

// accountAdmin adapts the store to the CLI's AccountAdmin port.
type accountAdmin struct {
	store store.Store
}

func (a *accountAdmin) SetAccountEnabled(ctx context.Context, account string, enabled bool) error {
	return a.store.UpsertAccountSettings(ctx, store.AccountSettings{
		Account:   account,
		Enabled:   enabled,
		UpdatedAt: time.Now(),
	})
}

// Compile-time interface compliance checks
var _ review.InstallationResolver = (*githubapp.Resolver)(nil)
var _ review.TokenExchanger = (*githubapp.Exchanger)(nil)
var _ review.CodeHost = (*githubadapter.Client)(nil)
var _ review.Generator = (*openai.Provider)(nil)
var _ review.Generator = (*anthropic.Provider)(nil)
var _ review.Generator = (*static.Provider)(nil)
var _ review.Store = (*storeAdapter.Bridge)(nil)
var _ server.EventHandler = (*review.Orchestrator)(nil)
var _ server.CacheInspector = (*githubapp.Resolver)(nil)
