package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hpungsan/mailsort/internal/brand"
	"github.com/hpungsan/mailsort/internal/classify"
	"github.com/hpungsan/mailsort/internal/config"
	"github.com/hpungsan/mailsort/internal/db"
	"github.com/hpungsan/mailsort/internal/logging"
	"github.com/hpungsan/mailsort/internal/mcp"
	"github.com/hpungsan/mailsort/internal/prefs"
	"github.com/hpungsan/mailsort/internal/session"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"classify": true, "lang": true, "brand": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  mailsort

  Email classifier & reply drafts

  Usage: mailsort <command> [options]
         mailsort --help

  MCP server mode requires piped input.`)
}

// app is everything a front-end needs, built once per process.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	client  *classify.Client
	machine *session.Machine
	brands  *brand.Manager
}

// newApp wires the preference store, service client, session machine and
// branding on top of an open database.
func newApp(database *sql.DB, cfg *config.Config, log zerolog.Logger) *app {
	store := prefs.NewDegrading(prefs.NewSQLite(database), logging.Component(log, "prefs"))
	client := classify.NewClient(cfg.ServiceURL, logging.Component(log, "classify"))
	machine := session.New(client, store, session.WithLogger(logging.Component(log, "session")))
	brands := brand.NewManager(client, store,
		brand.State{Name: cfg.DefaultBrandName, Logo: cfg.DefaultLogoURL},
		logging.Component(log, "brand"))

	return &app{
		cfg:     cfg,
		log:     log,
		client:  client,
		machine: machine,
		brands:  brands,
	}
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		cliApp := newCLIApp(nil)
		if err := cliApp.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// A missing .env is fine; MAILSORT_* may come from the real environment.
	_ = godotenv.Load()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".mailsort")

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	// CLI mode: known subcommand
	if isCLIMode() {
		a := newApp(database, cfg, logging.New(cfg.LogLevel, os.Stderr))
		cliApp := newCLIApp(a)
		if err := cliApp.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'mailsort --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default). stdout carries the protocol.
	if err := runMCP(database, cfg, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runMCP(database *sql.DB, cfg *config.Config, logOut io.Writer) error {
	log := logging.NewJSON(cfg.LogLevel, logOut)
	for _, name := range mcp.ValidateDisabledTools(cfg.DisabledTools) {
		log.Warn().Str("tool", name).Msg("unknown tool in disabled_tools")
	}

	a := newApp(database, cfg, log)
	log.Info().Str("service_url", a.client.BaseURL()).Msg("starting MCP server")
	a.brands.Load(context.Background())
	return mcp.Run(a.machine, a.brands, cfg, Version)
}
