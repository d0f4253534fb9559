package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/mattjoyce/openphone-gw/internal/config"
	"github.com/mattjoyce/openphone-gw/internal/doctor"
	"github.com/mattjoyce/openphone-gw/internal/ingest"
	"github.com/mattjoyce/openphone-gw/internal/lock"
	"github.com/mattjoyce/openphone-gw/internal/log"
	"github.com/mattjoyce/openphone-gw/internal/storage"
	"github.com/mattjoyce/openphone-gw/internal/tui/watch"
	"github.com/mattjoyce/openphone-gw/internal/webhook"
	"gopkg.in/yaml.v3"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	// A .env file (when present) feeds ${VAR} interpolation and environment
	// overrides for every subcommand.
	_ = godotenv.Load()
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	if cmd == "--version" {
		return runVersion(args)
	}

	switch cmd {
	// --- NOUNS ---
	case "system":
		return runSystemNoun(args)
	case "config":
		return runConfigNoun(args)

	// --- ROOT ALIASES ---
	case "start":
		return runStart(args)
	case "watch":
		return runWatch(args)
	case "doctor": // Alias for config check
		return runConfigCheck(args)
	case "version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: openphone-gw version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("openphone-gw %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}

	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	resolvedCommit := strings.TrimSpace(gitCommit)
	if resolvedCommit == "" || resolvedCommit == "unknown" {
		resolvedCommit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if resolvedCommit != "" {
		info.Commit = shortenCommit(resolvedCommit)
	}

	resolvedBuildTime := strings.TrimSpace(buildDate)
	if resolvedBuildTime == "" || resolvedBuildTime == "unknown" {
		resolvedBuildTime = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if normalizedBuildTime, ok := normalizeBuildTimeUTC(resolvedBuildTime); ok {
		info.BuildTime = normalizedBuildTime
	}

	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func normalizeBuildTimeUTC(raw string) (string, bool) {
	if raw == "" || raw == "unknown" {
		return "", false
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", false
	}

	return t.UTC().Format(time.RFC3339), true
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

func printUsage() {
	fmt.Print(`openphone-gw - OpenPhone webhook mirroring gateway

Usage:
  openphone-gw <noun> <action> [flags]

Core Resources (Nouns):
  system    Gateway lifecycle and health
  config    Service configuration and integrity

System Commands:
  system start      Start the gateway service in foreground
  system status     Show gateway readiness (config, store, PID lock)
  system watch      Live TUI over the mirror database

Config Commands:
  config check      Validate configuration and runtime environment
  config lock       Authorize current state (update integrity hashes)
  config show       Show full resolved configuration
  config get        Read a single configuration value

General:
  --version         Show version information
  version           Show version information
  help              Show this help message

Use 'openphone-gw <noun> help' for resource-specific flags.
`)
}

// --- NOUN DISPATCHERS ---

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		if hasHelpFlag(actionArgs) {
			printSystemStartHelp()
			return 0
		}
		return runStart(actionArgs)
	case "status":
		if hasHelpFlag(actionArgs) {
			printSystemStatusHelp()
			return 0
		}
		return runSystemStatus(actionArgs)
	case "watch":
		if hasHelpFlag(actionArgs) {
			printSystemWatchHelp()
			return 0
		}
		return runWatch(actionArgs)
	case "help":
		printSystemNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}

	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "lock", "hash-update": // Alias for backward compat
		if hasHelpFlag(actionArgs) {
			printConfigLockHelp()
			return 0
		}
		return runConfigHashUpdate(actionArgs)
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "show":
		if hasHelpFlag(actionArgs) {
			printConfigShowHelp()
			return 0
		}
		return runConfigShow(actionArgs)
	case "get":
		if hasHelpFlag(actionArgs) {
			printConfigGetHelp()
			return 0
		}
		return runConfigGet(actionArgs)
	case "help":
		printConfigNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printSystemNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: openphone-gw system <action>")
	fmt.Fprintln(w, "Actions: start, status, watch")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: openphone-gw config <action> [flags]")
	fmt.Fprintln(w, "Actions: lock, check, show, get")
}

func printSystemStartHelp() {
	fmt.Println("Usage: openphone-gw system start [--config PATH]")
	fmt.Println("Start the gateway service in the foreground.")
}

func printSystemStatusHelp() {
	fmt.Println("Usage: openphone-gw system status [--config PATH] [--json]")
	fmt.Println("Show gateway readiness (config, webhook settings, store, and PID lock state).")
	fmt.Println("")
	fmt.Println("Exit codes:")
	fmt.Println("  0  All required checks passed")
	fmt.Println("  1  One or more checks failed")
}

func printSystemWatchHelp() {
	fmt.Println("Usage: openphone-gw system watch [--config PATH]")
	fmt.Println()
	fmt.Println("Live terminal view of the mirror database.")
	fmt.Println("Shows gateway health, contact/communication counts, and recent deliveries.")
	fmt.Println()
	fmt.Println("Keybindings:")
	fmt.Println("  q, Ctrl+C        Quit")
	fmt.Println("  ↑/↓, k/j         Scroll communications")
}

func printConfigLockHelp() {
	fmt.Println("Usage: openphone-gw config lock [--config PATH] [-v|--verbose] [--dry-run]")
	fmt.Println("Authorize current configuration state by regenerating integrity hashes.")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: openphone-gw config check [--config PATH] [--format human|json] [--strict] [--json]")
	fmt.Println("Validate configuration and the runtime environment.")
}

func printConfigShowHelp() {
	fmt.Println("Usage: openphone-gw config show [path] [--config PATH] [--json]")
	fmt.Println("Show full resolved configuration or a filtered node.")
}

func printConfigGetHelp() {
	fmt.Println("Usage: openphone-gw config get <path> [--config PATH] [--json]")
	fmt.Println("Read a single value from the resolved configuration.")
}

// loadConfigForTool resolves configuration for CLI tools: an explicit path
// wins, then discovery, then environment-only defaults.
func loadConfigForTool(configPath string) (*config.Config, error) {
	if configPath == "" {
		if discovered, err := config.DiscoverConfigPath(); err == nil {
			configPath = discovered
		}
	}
	return config.Load(configPath)
}

// --- ACTION IMPLEMENTATIONS ---

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if *configPath == "" {
		if discovered, err := config.DiscoverConfigPath(); err == nil {
			*configPath = discovered
			fmt.Fprintf(os.Stderr, "Using discovered config: %s\n", *configPath)
		} else {
			fmt.Fprintln(os.Stderr, "No config file found; using environment configuration")
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("openphone-gw starting", "version", version, "config", *configPath)

	pidLock, err := lock.Acquire(cfg.LockPath())
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", cfg.LockPath(), "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", pidLock.Path())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Open(ctx, cfg.Store.URL, cfg.Store.Credential)
	if err != nil {
		logger.Error("failed to open store", "url", cfg.Store.URL, "error", err)
		return 1
	}
	defer store.Close()
	logger.Info("store opened", "url", cfg.Store.URL)

	ingestor := ingest.New(store, log.WithComponent("ingest"))

	webhookConfig, err := webhook.FromGlobalConfig(cfg)
	if err != nil {
		logger.Error("failed to configure webhook server", "error", err)
		return 1
	}
	webhookServer := webhook.New(webhookConfig, ingestor, log.WithComponent("webhook"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := webhookServer.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("webhook: %w", err)
		}
	}()

	logger.Info("openphone-gw running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("openphone-gw stopped")
	return 0
}

type statusCheck struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	Detail    string `json:"detail,omitempty"`
	ActivePID int    `json:"active_pid,omitempty"`
}

type statusReport struct {
	Healthy bool          `json:"healthy"`
	Checks  []statusCheck `json:"checks"`
}

// runSystemStatus is a readiness preflight: it verifies the configuration
// loads, the webhook settings parse, the store opens, and no other instance
// holds the PID lock.
func runSystemStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output status report as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	report := statusReport{Healthy: true}

	cfg, err := loadConfigForTool(*configPath)
	if err != nil {
		report.Healthy = false
		report.Checks = append(report.Checks,
			statusCheck{Name: "config_load", OK: false, Detail: err.Error()},
			statusCheck{Name: "webhook_config", OK: false, Detail: "skipped: config load failed"},
			statusCheck{Name: "store", OK: false, Detail: "skipped: config load failed"},
			statusCheck{Name: "pid_lock", OK: false, Detail: "skipped: config load failed"},
		)
		return printStatusReport(report, *jsonOut)
	}
	report.Checks = append(report.Checks, statusCheck{Name: "config_load", OK: true})

	if _, err := webhook.FromGlobalConfig(cfg); err != nil {
		report.Healthy = false
		report.Checks = append(report.Checks, statusCheck{Name: "webhook_config", OK: false, Detail: err.Error()})
	} else {
		report.Checks = append(report.Checks, statusCheck{Name: "webhook_config", OK: true})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if store, err := storage.Open(ctx, cfg.Store.URL, cfg.Store.Credential); err != nil {
		report.Healthy = false
		report.Checks = append(report.Checks, statusCheck{Name: "store", OK: false, Detail: err.Error()})
	} else {
		_ = store.Close()
		report.Checks = append(report.Checks, statusCheck{Name: "store", OK: true})
	}

	held, pid, err := lock.Probe(cfg.LockPath())
	switch {
	case err != nil:
		report.Healthy = false
		report.Checks = append(report.Checks, statusCheck{Name: "pid_lock", OK: false, Detail: err.Error()})
	case held:
		report.Healthy = false
		report.Checks = append(report.Checks, statusCheck{Name: "pid_lock", OK: false, Detail: "another instance is running", ActivePID: pid})
	default:
		report.Checks = append(report.Checks, statusCheck{Name: "pid_lock", OK: true})
	}

	return printStatusReport(report, *jsonOut)
}

func printStatusReport(report statusReport, jsonOut bool) int {
	if jsonOut {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render status JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
	} else {
		verdict := "HEALTHY"
		if !report.Healthy {
			verdict = "UNHEALTHY"
		}
		fmt.Printf("Gateway status: %s\n", verdict)
		for _, c := range report.Checks {
			state := "OK"
			if !c.OK {
				state = "FAIL"
			}
			line := fmt.Sprintf("  %s: %s", c.Name, state)
			if c.Detail != "" {
				line += fmt.Sprintf(" (%s)", c.Detail)
			}
			if c.ActivePID != 0 {
				line += fmt.Sprintf(" [pid %d]", c.ActivePID)
			}
			fmt.Println(line)
		}
	}

	if !report.Healthy {
		return 1
	}
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := loadConfigForTool(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	store, err := storage.Open(context.Background(), cfg.Store.URL, cfg.Store.Credential)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		return 1
	}
	defer store.Close()

	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	m := watch.New(store, healthURL)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

func runConfigCheck(args []string) int {
	var configPath string
	var strict, jsonOut bool
	var format string

	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.BoolVar(&strict, "strict", false, "Treat warnings as errors")
	fs.StringVar(&format, "format", "human", "Output format (human, json)")
	// Handle -json alias for format=json
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if jsonOut {
		format = "json"
	}

	cfg, err := loadConfigForTool(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	doc := doctor.New(cfg)
	result := doc.Validate()

	switch format {
	case "json":
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(out)
	default:
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	if strict && len(result.Warnings) > 0 {
		return 2
	}
	return 0
}

func runConfigHashUpdate(args []string) int {
	var configPath string
	var verbose, verboseShort, dryRun bool

	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.BoolVar(&verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&verboseShort, "v", false, "Verbose output")
	fs.BoolVar(&dryRun, "dry-run", false, "Dry run")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	isVerbose := verbose || verboseShort

	if configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		configPath = discovered
	}

	resolved, err := filepath.Abs(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve config path: %v\n", err)
		return 1
	}
	info, err := os.Stat(resolved)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config not found: %s\n", resolved)
		return 1
	}
	if info.IsDir() {
		resolved = filepath.Join(resolved, "config.yaml")
		if _, err := os.Stat(resolved); err != nil {
			fmt.Fprintf(os.Stderr, "Directory provided but config.yaml not found: %s\n", resolved)
			return 1
		}
	}

	dir := filepath.Dir(resolved)
	report, err := config.GenerateChecksumsWithReport(dir, []string{filepath.Base(resolved)}, dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config in %s: %v\n", dir, err)
		return 1
	}

	if isVerbose {
		fmt.Printf("Processing directory: %s\n", dir)
		for _, file := range report.Files {
			if file.Exists {
				fmt.Printf("  HASH %s: %s\n", file.Filename, file.Hash)
				continue
			}
			fmt.Printf("  SKIP %s: not found (optional)\n", file.Filename)
		}
		if dryRun {
			fmt.Printf("  DRY-RUN .checksums: %s (not written)\n", report.ChecksumPath)
		} else {
			fmt.Printf("  WROTE .checksums: %s\n", report.ChecksumPath)
		}
	}

	if dryRun {
		fmt.Printf("Dry run completed (no files written): %s\n", dir)
	} else {
		fmt.Printf("Successfully locked configuration: %s\n", dir)
	}
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfigForTool(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	var result any = cfg
	if fs.NArg() > 0 {
		res, err := cfg.GetPath(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		result = res
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		data, _ := yaml.Marshal(result)
		fmt.Print(string(data))
	}
	return 0
}

func runConfigGet(args []string) int {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: openphone-gw config get <path> [--json]\n")
		return 1
	}
	path := fs.Arg(0)

	cfg, err := loadConfigForTool(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	val, err := cfg.GetPath(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(val, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("%v\n", val)
	}
	return 0
}
