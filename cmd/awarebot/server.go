package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/awarebot/internal/api"
	"github.com/kalambet/awarebot/internal/classify"
	"github.com/kalambet/awarebot/internal/config"
	"github.com/kalambet/awarebot/internal/docstore"
	"github.com/kalambet/awarebot/internal/errlog"
	"github.com/kalambet/awarebot/internal/knowledge"
	"github.com/kalambet/awarebot/internal/model"
	"github.com/kalambet/awarebot/internal/persona"
	"github.com/kalambet/awarebot/internal/session"
)

const (
	errorLogDoc  = "error_log"
	knowledgeDoc = "knowledge"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the awarebot server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running awarebot server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show awarebot system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "awarebot.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// newProvider builds the configured hosted model provider. The returned
// closer releases underlying client resources (may be a no-op).
func newProvider(ctx context.Context, cfg config.Config, systemPrompt string) (model.Provider, func() error, error) {
	switch cfg.Model.Provider {
	case "gemini":
		g, err := model.NewGemini(ctx, cfg.Model.GeminiAPIKey, cfg.Model.GeminiModel, systemPrompt)
		if err != nil {
			return nil, nil, fmt.Errorf("creating gemini provider: %w", err)
		}
		return g, g.Close, nil
	case "groq":
		g, err := model.NewGroq(cfg.Model.GroqAPIKey, cfg.Model.GroqModel, systemPrompt)
		if err != nil {
			return nil, nil, fmt.Errorf("creating groq provider: %w", err)
		}
		return g, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "awarebot version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Ensure the management API token exists.
	apiToken, err := config.GetAPIToken(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("awarebot is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("awarebot is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Resolve the persona before touching the network.
	p, err := persona.Get(cfg.Chat.Persona)
	if err != nil {
		return err
	}

	// Open the durable stores.
	store, err := docstore.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	log := errlog.Open(store, errorLogDoc)
	kb := knowledge.Open(store, knowledgeDoc)

	// Build the model provider and session.
	provider, closeProvider, err := newProvider(ctx, cfg, p.SystemPrompt)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeProvider(); err != nil {
			slog.Warn("closing model provider", "error", err)
		}
	}()

	sess := session.New(session.Deps{
		Provider:     provider,
		Classifier:   classify.NewWithRate(cfg.Chat.FailureRate),
		Knowledge:    kb,
		Log:          log,
		Persona:      p,
		HistoryDepth: cfg.Chat.HistoryDepth,
	})
	slog.Info("session created",
		"session", sess.ID(),
		"persona", p.Name,
		"provider", cfg.Model.Provider,
	)

	// Build HTTP handler and server.
	handler := api.NewHandler(api.Deps{
		Session:   sess,
		Log:       log,
		Knowledge: kb,
		Token:     apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Build the MCP server (stdio transport).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Session:   sess,
		Log:       log,
		Knowledge: kb,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "awarebot listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
		return nil
	})
	slog.Info("MCP server started (stdio transport)")

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("awarebot is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop awarebot (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to awarebot (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Provider", "%s", cfg.Model.Provider)
	switch cfg.Model.Provider {
	case "gemini":
		printStatus("Model", "%s", cfg.Model.GeminiModel)
	case "groq":
		printStatus("Model", "%s", cfg.Model.GroqModel)
	}
	printStatus("Persona", "%s", cfg.Chat.Persona)

	// Show log/knowledge counts if server is running.
	if running {
		if c, err := newAPIClient(); err == nil {
			ctx := context.Background()
			if logResp, err := c.get(ctx, "/v1/log"); err == nil {
				var body struct {
					Records []any `json:"records"`
				}
				if decodeJSON(logResp, &body) == nil {
					printStatus("Logged failures", "%d", len(body.Records))
				}
			}
			if kbResp, err := c.get(ctx, "/v1/knowledge"); err == nil {
				var body struct {
					Entries map[string]string `json:"entries"`
				}
				if decodeJSON(kbResp, &body) == nil {
					printStatus("Knowledge entries", "%d", len(body.Entries))
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
