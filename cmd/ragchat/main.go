// Command ragchat is a terminal client for a PDF-aware chat service.
//
// Usage:
//
//	RAGCHAT_API_KEY=sk-... ragchat [flags]
//
// Flags:
//
//	-base-url string  Chat service base URL (default from config)
//	-model string     Model ID sent with every turn
//	-doc string       Directory scanned for a PDF to upload on startup
//	-config string    Path to a config file (default ~/.ragchat/config.toml)
//	-debug            Write a debug log to ~/.ragchat/debug.log
//
// Two conversations are available: a plain chat and a document-grounded
// chat. The document tab unlocks once a PDF has been uploaded and indexed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/fwojciec/ragchat"
	"github.com/fwojciec/ragchat/config"
	"github.com/fwojciec/ragchat/httpapi"
	"github.com/fwojciec/ragchat/store"
	"github.com/fwojciec/ragchat/tui"
	"github.com/fwojciec/ragchat/turn"
	"github.com/fwojciec/ragchat/upload"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ragchat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		baseURL    = flag.String("base-url", "", "Chat service base URL")
		model      = flag.String("model", "", "Model ID sent with every turn")
		docDir     = flag.String("doc", "", "Directory scanned for a PDF to upload on startup")
		configPath = flag.String("config", "", "Path to a config file")
		debug      = flag.Bool("debug", false, "Write a debug log")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *docDir != "" {
		cfg.Document.Dir = *docDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, closeLog, err := newLogger(cfg, *debug)
	if err != nil {
		return err
	}
	defer closeLog()

	creds := ragchat.NewSessionCredentials(os.Getenv("RAGCHAT_API_KEY"))
	client := httpapi.New(
		httpapi.WithBaseURL(cfg.BaseURL),
		httpapi.WithLogger(log),
	)
	gate := ragchat.NewDocumentGate()

	st := store.New()
	if err := st.Create("chat", cfg.Prompts.Chat, false); err != nil {
		return err
	}
	if err := st.Create("doc", cfg.Prompts.Document, true); err != nil {
		return err
	}

	controller := turn.New(st, client, gate, creds,
		turn.WithModel(cfg.Model),
		turn.WithIdleTimeout(cfg.IdleTimeout()),
		turn.WithLogger(log),
	)

	// Prime the document gate before the TUI starts: adopt a document the
	// server already has, or upload one found under the configured
	// directory. Neither step is fatal; the doc tab just stays locked.
	uploader := upload.New(client, gate, creds, upload.WithLogger(log))
	seedDocument(ctx, uploader, cfg.Document.Dir, cfg.Document.Pattern, log)

	startTurn := func(ctx context.Context, conversationID, text string) (tui.Turn, error) {
		h, err := controller.Start(ctx, conversationID, text)
		if err != nil {
			return nil, err
		}
		return h, nil
	}

	m := tui.New(st, gate, startTurn, client.Health, ragchat.DefaultTheme())
	if err := tui.Run(ctx, m); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func seedDocument(ctx context.Context, uploader *upload.Uploader, dir, pattern string, log zerolog.Logger) {
	seedCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := uploader.Seed(seedCtx); err != nil {
		log.Warn().Err(err).Msg("document status probe failed")
	}

	if dir == "" {
		return
	}
	path, err := upload.Find(dir, pattern)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("dir", dir).Msg("document scan failed")
		}
		return
	}
	if _, err := uploader.Run(seedCtx, path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("document upload failed")
	}
}

// newLogger builds a file-backed zerolog logger when debugging is on, and
// a no-op logger otherwise. Logging to stderr would corrupt the TUI.
func newLogger(cfg *config.Config, debug bool) (zerolog.Logger, func(), error) {
	nop := func() {}
	path := cfg.Log.Path
	if debug && path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return zerolog.Nop(), nop, fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, ".ragchat", "debug.log")
	}
	if path == "" {
		return zerolog.Nop(), nop, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nop, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nop, fmt.Errorf("opening log file: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}

	log := zerolog.New(f).Level(level).With().Timestamp().Logger()
	return log, func() { _ = f.Close() }, nil
}
