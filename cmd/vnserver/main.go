// vnserver serves story fragments and saved conversations over HTTP and
// websockets.
// Usage: vnserver [--version] [--config <file>] [--story <dir>] [--addr <addr>] [--no-db] [--chunk-delay <duration>]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nathoo/vnplayer/applog"
	"github.com/nathoo/vnplayer/config"
	"github.com/nathoo/vnplayer/loader"
	"github.com/nathoo/vnplayer/server"
	"github.com/nathoo/vnplayer/storage"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: vnserver [--version] [--config <file>] [--story <dir>] [--addr <addr>] [--no-db] [--chunk-delay <duration>]"

func main() {
	noDB := false
	var configFile, storyDir, addr string
	var delay time.Duration

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
			fmt.Printf("vnserver %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--no-db":
			noDB = true
		case "--config":
			configFile = value(i, "--config")
			i++
		case "--story":
			storyDir = value(i, "--story")
			i++
		case "--addr":
			addr = value(i, "--addr")
			i++
		case "--chunk-delay":
			d, err := time.ParseDuration(value(i, "--chunk-delay"))
			if err != nil {
				fail("--chunk-delay: %v", err)
			}
			delay = d
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
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger, closeLog := applog.New(applog.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	defer closeLog()
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, warnings, err := loader.Resolve(cfg.Player.Story, cfg.Player.IntroFile)
	if err != nil {
		fail("Error loading story: %v", err)
	}
	for _, w := range warnings {
		logger.Warn("story warning", "warning", w)
	}

	opts := []server.Option{
		server.WithLogger(applog.WithComponent(logger, "server")),
		server.WithChunking(cfg.Player.ChunkSize, cfg.Player.ChunkSeed),
		server.WithChunkDelay(delay),
	}
	if !noDB {
		store, err := storage.Open(ctx, cfg.DB.Driver, cfg.DatabaseDSN(), storage.WithLogger(applog.WithComponent(logger, "storage")))
		if err != nil {
			fail("Error opening database: %v", err)
		}
		defer store.Close()
		opts = append(opts, server.WithStore(store))
	}

	if err := server.New(st, opts...).Run(ctx, cfg.Server.Addr); err != nil {
		logger.Error("server stopped", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
