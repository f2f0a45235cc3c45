// vnplayer plays a branching visual-novel story in the terminal.
// Usage: vnplayer [--version] [--plain] [--script <file>] [--trace] [--config <file>]
//
//	[--story <dir>] [--server <url>] [--ws] [--record] [--seed <n>]
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
	"syscall"
	"time"

	"github.com/nathoo/vnplayer/applog"
	"github.com/nathoo/vnplayer/cli"
	"github.com/nathoo/vnplayer/config"
	"github.com/nathoo/vnplayer/engine"
	"github.com/nathoo/vnplayer/engine/markup"
	"github.com/nathoo/vnplayer/loader"
	"github.com/nathoo/vnplayer/remote"
	"github.com/nathoo/vnplayer/storage"
	"github.com/nathoo/vnplayer/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: vnplayer [--version] [--plain] [--script <file>] [--trace] [--config <file>] [--story <dir>] [--server <url>] [--ws] [--record] [--seed <n>]"

func main() {
	plain := false
	trace := false
	record := false
	useWS := false
	var configFile, storyDir, serverURL, scriptFile string
	var seed *int64

	args := os.Args[1:]
	value := func(i int, flag string) string {
		if i+1 >= len(args) {
			fail("%s requires a value\n%s", flag, usage)
		}
		return args[i+1]
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("vnplayer %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--trace":
			trace = true
		case "--record":
			record = true
		case "--ws":
			useWS = true
		case "--script":
			scriptFile = value(i, "--script")
			i++
		case "--config":
			configFile = value(i, "--config")
			i++
		case "--story":
			storyDir = value(i, "--story")
			i++
		case "--server":
			serverURL = value(i, "--server")
			i++
		case "--seed":
			n, err := strconv.ParseInt(value(i, "--seed"), 10, 64)
			if err != nil {
				fail("--seed: %v", err)
			}
			seed = &n
			i++
		case "-h", "--help":
			fmt.Println(usage)
			return
		default:
			fail("unknown argument %q\n%s", args[i], usage)
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fail("Error loading config: %v", err)
	}
	if storyDir != "" {
		cfg.Player.Story = storyDir
	}
	if serverURL != "" {
		cfg.Server.URL = serverURL
	}
	if useWS {
		cfg.Server.Transport = config.TransportWS
	}
	if seed != nil {
		cfg.Player.ChunkSeed = *seed
	}

	// The terminal belongs to the story, so logs always go to a file.
	logFile := cfg.Log.File
	if logFile == "" {
		logFile = filepath.Join(cfg.DataDir, "vnplayer.log")
	}
	logger, closeLog := applog.New(applog.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: logFile})
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, warnings, err := loader.Resolve(cfg.Player.Story, cfg.Player.IntroFile)
	if err != nil {
		fail("Error loading story: %v", err)
	}
	for _, w := range warnings {
		logger.Warn("story warning", "warning", w)
	}

	opts := []engine.Option{
		engine.WithLogger(applog.WithComponent(logger, "engine")),
		engine.WithChunker(engine.NewChunker(engine.NewRNG(cfg.Player.ChunkSeed), cfg.Player.ChunkSize)),
		engine.WithParserOptions(markup.WithFallbackTail(cfg.Player.FallbackTail)),
	}

	if cfg.Server.URL != "" {
		switch cfg.Server.Transport {
		case config.TransportWS:
			src := remote.NewWSSource(cfg.Server.URL)
			defer src.Close()
			opts = append(opts, engine.WithSource(src))
		default:
			opts = append(opts, engine.WithSource(remote.NewHTTPSource(cfg.Server.URL, &http.Client{Timeout: 60 * time.Second})))
		}
		logger.Info("using remote story server", "url", cfg.Server.URL, "transport", cfg.Server.Transport)
	}

	if record {
		store, err := storage.Open(ctx, cfg.DB.Driver, cfg.DatabaseDSN(), storage.WithLogger(applog.WithComponent(logger, "storage")))
		if err != nil {
			fail("Error opening database: %v", err)
		}
		defer store.Close()
		session, err := config.SessionID(cfg.DataDir)
		if err != nil {
			fail("Error reading session: %v", err)
		}
		opts = append(opts, engine.WithJournal(storage.NewJournal(store, session)))
	}

	eng := engine.New(st, opts...)
	saveDir := filepath.Join(cfg.DataDir, "saves")

	// Script mode: open file, force plain, echo input.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fail("Error opening script: %v", err)
		}
		defer f.Close()
		fmt.Printf("%s\n\n", st.Title)
		c := cli.New(eng)
		c.In = f
		c.EchoInput = true
		c.Trace = trace
		c.SaveDir = saveDir
		exit(logger, c.Run(ctx))
		return
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if plain || !isTerminal() {
		fmt.Printf("%s\n\n", st.Title)
		c := cli.New(eng)
		c.Trace = trace
		c.SaveDir = saveDir
		if isTerminal() {
			c.TypeDelay = cfg.Player.TypeDelay
		}
		exit(logger, c.Run(ctx))
		return
	}

	exit(logger, tui.Run(ctx, eng, tui.Options{TypeDelay: cfg.Player.TypeDelay, SaveDir: saveDir}))
}

func exit(logger *slog.Logger, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	logger.Error("player stopped", "error", err)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
