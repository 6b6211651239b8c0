// Command marginote runs the capture daemon: it drives a reading browser,
// injects the capture agent into every open page, and relays saved
// selections to the blog's plugin API.
//
// Usage:
//
//	marginote -config marginote.yaml            # reading sessions from config
//	marginote -url https://example.com/post     # one reading session
//	marginote -set-key                          # store the API key from stdin
//	marginote -clear-key                        # forget the stored API key
//	marginote -popup                            # print the summary view and exit
//	marginote -mcp                              # serve capture tools over stdio
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/go-rod/rod"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/marginote/marginote/apiclient"
	"github.com/marginote/marginote/capture"
	"github.com/marginote/marginote/internal/browser"
	"github.com/marginote/marginote/config"
	"github.com/marginote/marginote/credstore"
	"github.com/marginote/marginote/dbopen"
	"github.com/marginote/marginote/mcpserver"
	"github.com/marginote/marginote/popup"
	"github.com/marginote/marginote/relay"
)

func main() {
	configPath := flag.String("config", "", "path to marginote.yaml config file")
	singleURL := flag.String("url", "", "open one reading session for this URL")
	apiBase := flag.String("api", "", "override the blog API base URL")
	setKey := flag.Bool("set-key", false, "read an API key from stdin, store it, and exit")
	clearKey := flag.Bool("clear-key", false, "clear the stored API key and exit")
	showPopup := flag.Bool("popup", false, "print the summary view and exit")
	serveMCP := flag.Bool("mcp", false, "serve capture tools over stdio MCP")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, options{
		configPath: *configPath,
		singleURL:  *singleURL,
		apiBase:    *apiBase,
		setKey:     *setKey,
		clearKey:   *clearKey,
		showPopup:  *showPopup,
		serveMCP:   *serveMCP,
	}); err != nil {
		logger.Error("marginote: fatal", "error", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	singleURL  string
	apiBase    string
	setKey     bool
	clearKey   bool
	showPopup  bool
	serveMCP   bool
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	creds, err := openCredStore(cfg)
	if err != nil {
		return err
	}

	switch {
	case opts.setKey:
		return storeKey(ctx, creds)
	case opts.clearKey:
		if err := creds.Clear(ctx); err != nil {
			return fmt.Errorf("clear key: %w", err)
		}
		fmt.Println("API key cleared")
		return nil
	}

	api := apiclient.New(cfg.API.BaseURL, apiclient.WithLogger(logger))
	rel := relay.New(creds, api, relay.WithLogger(logger))
	loop := relay.NewLoopback(rel)

	if opts.showPopup {
		m := popup.New(loop, creds, cfg.Popup, popup.WithLogger(logger)).Open(ctx)
		return m.Render(os.Stdout)
	}

	if opts.serveMCP {
		srv := mcpserver.NewServer(loop, mcpserver.WithLogger(logger))
		return srv.Run(ctx, &mcp.StdioTransport{})
	}

	return runSessions(ctx, logger, cfg, rel, loop)
}

func loadConfig(opts options) (*config.Config, error) {
	var cfg *config.Config
	if opts.configPath != "" {
		loaded, err := config.LoadFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = &config.Config{}
		cfg.ApplyDefaults()
	}

	if opts.apiBase != "" {
		cfg.API.BaseURL = opts.apiBase
	}
	if opts.singleURL != "" {
		cfg.Pages = append(cfg.Pages, opts.singleURL)
	}
	return cfg, nil
}

func openCredStore(cfg *config.Config) (credstore.Store, error) {
	switch cfg.Credential.Backend {
	case "sqlite":
		db, err := dbopen.Open(cfg.Credential.DBPath,
			dbopen.WithSchema(credstore.Schema),
			dbopen.WithMkdirAll())
		if err != nil {
			return nil, fmt.Errorf("open credential db: %w", err)
		}
		return credstore.NewSQLite(db), nil
	case "keyring":
		return credstore.NewKeyring(cfg.Credential.Service), nil
	default:
		return nil, fmt.Errorf("unknown credential backend %q", cfg.Credential.Backend)
	}
}

func storeKey(ctx context.Context, creds credstore.Store) error {
	fmt.Fprint(os.Stderr, "API key: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read key: %w", err)
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return fmt.Errorf("empty API key")
	}
	if err := creds.Set(ctx, key); err != nil {
		return fmt.Errorf("store key: %w", err)
	}
	fmt.Println("API key stored")
	return nil
}

// runSessions opens every configured page, attaches a capture agent to
// each, and keeps them alive until shutdown. A browser recycle detaches
// the relay channel first, so in-flight saves fail with a context-lost
// error the agents know how to retry, then reopens the sessions.
func runSessions(ctx context.Context, logger *slog.Logger, cfg *config.Config, rel *relay.Relay, loop *relay.Loopback) error {
	if len(cfg.Pages) == 0 {
		return fmt.Errorf("no pages to open: pass -url or configure pages")
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:       cfg.Browser.Remote,
		MemoryLimit:     cfg.Browser.MemoryLimit,
		RecycleInterval: cfg.Browser.RecycleInterval,
		BlockResources:  cfg.Browser.BlockResources,
		Headful:         cfg.Browser.Headful,
		XvfbDisplay:     cfg.Browser.XvfbDisplay,
		Logger:          logger,
	})

	var mu sync.Mutex
	var agents []*capture.PageAgent

	closeAgents := func() {
		mu.Lock()
		defer mu.Unlock()
		for _, a := range agents {
			a.Close()
		}
		agents = nil
	}

	openAll := func() {
		for _, pageURL := range cfg.Pages {
			sess, err := browser.OpenSession(ctx, mgr, pageURL)
			if err != nil {
				logger.Error("open session failed", "url", pageURL, "error", err)
				continue
			}
			agent, err := capture.Attach(ctx, sess.Page, loop, cfg.Capture, capture.WithLogger(logger))
			if err != nil {
				logger.Error("attach failed", "url", pageURL, "error", err)
				sess.Close()
				continue
			}
			mu.Lock()
			agents = append(agents, agent)
			mu.Unlock()
			logger.Info("session ready", "url", pageURL)
		}
	}

	mgr.SetRecycleHooks(&browser.RecycleHooks{
		BeforeRecycle: func() {
			loop.Detach()
			closeAgents()
		},
		AfterRecycle: func(_ *rod.Browser) {
			loop.Attach(rel)
			openAll()
		},
	})

	if _, err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer mgr.Close()

	openAll()
	logger.Info("capture daemon ready", "pages", len(cfg.Pages))

	<-ctx.Done()
	logger.Info("shutting down")
	closeAgents()
	return nil
}
