// Package main provides the envwarn command line tool.
// It classifies URLs into deployment environments, edits the environment
// patterns, and drives browser tabs that carry a warning banner for the
// environment they show.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/envwarn/pkg/config"
	"github.com/entrhq/envwarn/pkg/logging"
	"github.com/entrhq/envwarn/pkg/patterns"
	"github.com/entrhq/envwarn/pkg/relay"
	"github.com/entrhq/envwarn/pkg/rules"
	"github.com/spf13/pflag"
)

const version = "0.1.0"

// errUsage marks argument errors; they print usage and exit 2.
var errUsage = errors.New("usage error")

// Config holds the global command line options.
type Config struct {
	ConfigPath  string
	RedisAddr   string
	Headless    bool
	ShowVersion bool

	Command string
	Args    []string
}

// app bundles what every command needs.
type app struct {
	cfg      *Config
	logger   *logging.Logger
	manager  *config.Manager
	bus      *relay.Bus
	patterns *patterns.Store
	rules    *rules.Store
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("envwarn v%s\n", version)
		return
	}
	if cfg.Command == "" {
		pflag.Usage()
		os.Exit(2)
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	err := run(ctx, cfg)
	cancel()
	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, err)
		pflag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("envwarn: %v", err)
	}
}

// parseFlags parses the global flags. Everything after the first
// positional argument belongs to the command.
func parseFlags() *Config {
	cfg := &Config{}

	pflag.CommandLine.SetInterspersed(false)
	pflag.StringVar(&cfg.ConfigPath, "config", "", "Path to the config file (default ~/.envwarn/config.json)")
	pflag.StringVar(&cfg.RedisAddr, "redis", "", "Redis address for cross-process notifications (or set "+config.RedisAddrEnv+")")
	pflag.BoolVar(&cfg.Headless, "headless", false, "Run the browser without a window (browse only)")
	pflag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "envwarn - deployment environment warnings for web pages\n\n")
		fmt.Fprintf(os.Stderr, "Usage: envwarn [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  classify URL...                 Print the environment of each URL\n")
		fmt.Fprintf(os.Stderr, "  popup [--url URL]               Show the environment summary\n")
		fmt.Fprintf(os.Stderr, "  options [--url URL]             Edit the environment patterns\n")
		fmt.Fprintf(os.Stderr, "  patterns list|add|remove|reset|validate|export|import\n")
		fmt.Fprintf(os.Stderr, "  rules list|add|clear|import-chrome\n")
		fmt.Fprintf(os.Stderr, "  browse URL...                   Open browser tabs with environment banners\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  envwarn classify https://api.prod.example.com\n")
		fmt.Fprintf(os.Stderr, "  envwarn patterns add staging '\\.stg\\.example\\.com$'\n")
		fmt.Fprintf(os.Stderr, "  envwarn --redis localhost:6379 browse https://staging.example.com\n")
	}

	pflag.Parse()
	if pflag.NArg() > 0 {
		cfg.Command = pflag.Arg(0)
		cfg.Args = pflag.Args()[1:]
	}
	return cfg
}

// run initializes configuration and dispatches the command.
func run(ctx context.Context, cfg *Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.logger.Close()

	switch cfg.Command {
	case "classify":
		return a.classify(cfg.Args)
	case "popup":
		return a.popup(ctx, cfg.Args)
	case "options":
		return a.options(ctx, cfg.Args)
	case "patterns":
		return a.patternsCommand(ctx, cfg.Args)
	case "rules":
		return a.rulesCommand(ctx, cfg.Args)
	case "browse":
		return a.browse(ctx, cfg.Args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cfg.Command)
	}
}

func newApp(cfg *Config) (*app, error) {
	// On error the logger falls back to stderr and has already said so.
	logger, _ := logging.NewLogger("envwarn")

	// Invalid sections fall back to defaults; the rest of the file still loads.
	if err := config.Initialize(cfg.ConfigPath); err != nil {
		if !config.IsInitialized() {
			logger.Close()
			return nil, fmt.Errorf("failed to initialize configuration: %w", err)
		}
		logger.Warnf("configuration loaded with defaults: %v", err)
	}
	manager := config.Global()

	bus := relay.NewBus(logger.With("relay"))
	return &app{
		cfg:      cfg,
		logger:   logger,
		manager:  manager,
		bus:      bus,
		patterns: patterns.NewStore(manager, bus, logger.With("patterns")),
		rules:    rules.NewStore(manager, logger.With("rules")),
	}, nil
}

// startRelay connects the bus to Redis when an address is configured and
// turns external edits of the config file into pattern notifications.
// Both run until ctx is done.
func (a *app) startRelay(ctx context.Context) {
	if section := config.GetRelay(); section != nil {
		if addr, channel := section.Resolve(a.cfg.RedisAddr); addr != "" {
			client := relay.NewRedisClient(addr)
			bridge := relay.NewBridge(a.bus, client, channel, a.logger.With("bridge"))
			go func() {
				defer client.Close()
				if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
					a.logger.Warnf("relay bridge stopped: %v", err)
				}
			}()
		}
	}

	go func() {
		err := a.manager.Watch(ctx, func(changed []string, err error) {
			if err != nil {
				a.logger.Warnf("config reload: %v", err)
			}
			for _, id := range changed {
				if id == config.SectionIDPatterns {
					a.bus.NotifyPatternsChanged(ctx)
					return
				}
			}
		})
		if err != nil && ctx.Err() == nil {
			a.logger.Warnf("config watch stopped: %v", err)
		}
	}()
}
