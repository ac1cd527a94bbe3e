package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"grant_assistant/config"
	"grant_assistant/document"
	"grant_assistant/generator"
	"grant_assistant/logger"
	"grant_assistant/proxy"
	"grant_assistant/server"
)

func main() {
	configPath := flag.String("config", "", "path to config.json (defaults to config/config.json when present)")
	serve := flag.Bool("serve", false, "start web server")
	addr := flag.String("addr", "", "http listen address when --serve (overrides config.server_addr)")
	verbose := flag.Bool("v", false, "enable logs in one-shot mode")
	appPath := flag.String("app", "", "application JSON to load")
	questionID := flag.String("question", "", "generate an answer for this question id")
	element := flag.String("logframe", "", "generate a logframe element: goal|outcome|output|activity")
	mock := flag.Bool("mock", false, "use the offline mock backend")
	flag.Parse()

	if err := run(*configPath, *serve, *addr, *verbose, *appPath, *questionID, *element, *mock); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, serve bool, addr string, verbose bool, appPath, questionID, element string, mock bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.Nop()
	if serve || verbose {
		if log, err = logger.New(cfg.LogMode); err != nil {
			return err
		}
	}
	defer log.Sync()

	relay := proxy.NewRelay(proxy.Settings{
		OpenAI: proxy.ProviderSettings{
			APIKey:     cfg.Providers.OpenAI.APIKey,
			BaseURL:    cfg.Providers.OpenAI.BaseURL,
			MaxRetries: cfg.Providers.OpenAI.MaxRetries,
		},
		Anthropic: proxy.ProviderSettings{
			APIKey:     cfg.Providers.Anthropic.APIKey,
			BaseURL:    cfg.Providers.Anthropic.BaseURL,
			MaxRetries: cfg.Providers.Anthropic.MaxRetries,
		},
	}, log)

	backend, err := buildBackend(cfg, relay, mock)
	if err != nil {
		return err
	}
	models, err := generator.NewModelRegistry(cfg.Models)
	if err != nil {
		return err
	}
	store := document.NewStore()
	orch, err := generator.NewOrchestrator(store, backend, models, log)
	if err != nil {
		return err
	}

	if appPath != "" {
		app, err := loadApplication(appPath)
		if err != nil {
			return err
		}
		store.SetApplication(app)
	}

	// Web server mode
	if serve {
		srv, err := server.New(store, orch, models, server.Options{
			Relay:           relay,
			GenerateTimeout: cfg.RequestTimeout.Duration,
			Logger:          log,
		})
		if err != nil {
			return err
		}
		listen := cfg.ServerAddr
		if addr != "" {
			listen = addr
		}
		return listenAndServe(listen, srv.Routes(), log)
	}

	if appPath == "" || (questionID == "" && element == "") {
		return errors.New("--app plus --question or --logframe are required (or use --serve)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout.Duration)
	defer cancel()
	result, err := generateOnce(ctx, orch, questionID, element)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func buildBackend(cfg *config.Config, relay *proxy.Relay, mock bool) (generator.Backend, error) {
	if mock {
		return generator.MockLLM{}, nil
	}
	if strings.TrimSpace(cfg.ProxyURL) != "" {
		return generator.NewProxyBackend(cfg.ProxyURL, &http.Client{Timeout: cfg.RequestTimeout.Duration})
	}
	return generator.NewRelayBackend(relay)
}

func loadApplication(path string) (document.Application, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Application{}, err
	}
	var app document.Application
	if err := json.Unmarshal(data, &app); err != nil {
		return document.Application{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return app, nil
}

func generateOnce(ctx context.Context, orch *generator.Orchestrator, questionID, element string) (any, error) {
	if questionID != "" {
		return orch.GenerateQuestionContent(ctx, questionID)
	}
	switch element {
	case "goal":
		goal, err := orch.GenerateGoal(ctx)
		return map[string]string{"goal": goal}, err
	case string(generator.ElementOutcome):
		return orch.GenerateOutcome(ctx)
	case string(generator.ElementOutput):
		return orch.GenerateOutput(ctx)
	case string(generator.ElementActivity):
		return orch.GenerateActivity(ctx)
	default:
		return nil, fmt.Errorf("unknown logframe element %q", element)
	}
}

func listenAndServe(addr string, handler http.Handler, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	log.Info("starting web server", "addr", addr)

	select {
	case <-ctx.Done():
		log.Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}
