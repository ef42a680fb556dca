package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/patchplaza/patchwork-cli/internal/chat"
	"github.com/patchplaza/patchwork-cli/internal/config"
	"github.com/patchplaza/patchwork-cli/internal/daemon"
	"github.com/patchplaza/patchwork-cli/internal/family"
	"github.com/patchplaza/patchwork-cli/internal/github"
	"github.com/patchplaza/patchwork-cli/internal/llm"
	"github.com/patchplaza/patchwork-cli/internal/prompt"
	"github.com/patchplaza/patchwork-cli/internal/protocol"
	"github.com/patchplaza/patchwork-cli/internal/sandbox"
	"github.com/patchplaza/patchwork-cli/internal/updater"
	"github.com/patchplaza/patchwork-cli/internal/web"
	"github.com/patchplaza/patchwork-cli/internal/websearch"
)

// Set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	github.SetVersion(version)
	sandbox.SetVersion(version)

	root := &cobra.Command{
		Use:   "patchwork",
		Short: "Patchwork — repository agent CLI",
		Long:  "Patchwork CLI — a chat agent that reads, runs, and patches a GitHub repository through tool calls.",
	}

	root.AddCommand(initCmd(), chatCmd(), detectCmd(), diagnoseCmd(), serveCmd(), statusCmd(), sessionsCmd(),
		configCmd(), versionCmd(), updateCmd(), installCmd(), uninstallCmd(), startCmd(), stopCmd(), restartCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// ── init command ──

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		RunE:  runInit,
	}
}

func runInit(_ *cobra.Command, _ []string) error {
	fmt.Printf("Welcome to Patchwork!  (v%s)\n", version)

	// Non-blocking remote version check
	type versionResult struct {
		info *updater.VersionInfo
		err  error
	}
	versionCh := make(chan versionResult, 1)
	go func() {
		info, err := updater.CheckUpdate(version)
		versionCh <- versionResult{info, err}
	}()

	select {
	case r := <-versionCh:
		if r.err == nil && r.info != nil {
			fmt.Printf("Update available: v%s → v%s  (run: patchwork update)\n", version, r.info.Version)
		}
	case <-time.After(2 * time.Second):
		// Don't block init flow
	}
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)

	if _, err := os.Stat(config.Path()); err == nil {
		fmt.Printf("Config already exists at %s\n", config.Path())
		fmt.Print("Overwrite? [y/N]: ")
		scanner.Scan()
		if strings.ToLower(strings.TrimSpace(scanner.Text())) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()

	fmt.Print("Agent name (shown in the web console): ")
	scanner.Scan()
	cfg.Agent.Name = strings.TrimSpace(scanner.Text())
	if cfg.Agent.Name == "" {
		cfg.Agent.Name = "patchwork"
	}

	fmt.Print("Repository to work on (owner/name): ")
	scanner.Scan()
	cfg.GitHub.AllowedRepo = strings.TrimSpace(scanner.Text())
	if !strings.Contains(cfg.GitHub.AllowedRepo, "/") {
		return fmt.Errorf("repository must be owner/name")
	}

	fmt.Print("GitHub token (repo scope): ")
	scanner.Scan()
	cfg.GitHub.Token = strings.TrimSpace(scanner.Text())
	if cfg.GitHub.Token == "" {
		return fmt.Errorf("GitHub token is required")
	}

	fmt.Printf("Default branch [%s]: ", cfg.GitHub.DefaultBranch)
	scanner.Scan()
	if b := strings.TrimSpace(scanner.Text()); b != "" {
		cfg.GitHub.DefaultBranch = b
	}

	// Sandbox mode
	fmt.Println()
	fmt.Println("Sandbox mode (where commands run):")
	fmt.Println("  1. Local   — git clone into a temp dir on this machine")
	fmt.Println("  2. Remote  — a patchwork sandbox service")
	fmt.Print("Choose [1]: ")
	scanner.Scan()
	switch strings.TrimSpace(scanner.Text()) {
	case "", "1":
		cfg.Sandbox.Mode = "local"
	case "2":
		cfg.Sandbox.Mode = "remote"
		fmt.Print("Sandbox base URL: ")
		scanner.Scan()
		cfg.Sandbox.BaseURL = strings.TrimSpace(scanner.Text())
		if cfg.Sandbox.BaseURL == "" {
			return fmt.Errorf("sandbox base URL is required for remote mode")
		}
		fmt.Print("Sandbox API key: ")
		scanner.Scan()
		cfg.Sandbox.APIKey = strings.TrimSpace(scanner.Text())
	default:
		return fmt.Errorf("invalid choice")
	}

	if err := collectLLMConfig(scanner, cfg); err != nil {
		return err
	}

	// Web search is optional.
	fmt.Println()
	fmt.Print("Web search API key (Brave-compatible, blank to skip): ")
	scanner.Scan()
	cfg.Search.APIKey = strings.TrimSpace(scanner.Text())
	if cfg.Search.APIKey != "" {
		cfg.Search.BaseURL = "https://api.search.brave.com/res/v1/web/search"
	}

	fmt.Print("Enable web console? [Y/n]: ")
	scanner.Scan()
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	cfg.Web.Enabled = answer == "" || answer == "y" || answer == "yes"

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("\nConfig saved to %s\n", config.Path())
	fmt.Println("Run 'patchwork chat' to start a session.")
	return nil
}

// collectLLMConfig prompts the user for LLM provider settings.
func collectLLMConfig(scanner *bufio.Scanner, cfg *config.Config) error {
	fmt.Println()
	fmt.Println("LLM provider (drives the agent):")
	fmt.Println("  1. OpenAI    (gpt-4o-mini)")
	fmt.Println("  2. Anthropic (claude-haiku)")
	fmt.Println("  3. Ollama    (local, free)      — requires ollama installed")
	fmt.Println("  4. Custom OpenAI-compatible")
	fmt.Println("  5. Gateway                      — patchplaza hosted key (pp_xxx)")
	fmt.Print("Choose [1]: ")
	scanner.Scan()
	providerChoice := strings.TrimSpace(scanner.Text())
	if providerChoice == "" {
		providerChoice = "1"
	}

	var keyURL string

	switch providerChoice {
	case "1": // OpenAI
		cfg.LLM.Provider = "openai"
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
		cfg.LLM.Model = "gpt-4o-mini"
		keyURL = "https://platform.openai.com/api-keys"
	case "2": // Anthropic
		cfg.LLM.Provider = "anthropic"
		cfg.LLM.Model = "claude-haiku-4-5-20251001"
		keyURL = "https://console.anthropic.com/settings/keys"
	case "3": // Ollama
		cfg.LLM.Provider = "ollama"
		cfg.LLM.BaseURL = "http://localhost:11434"
		cfg.LLM.Model = "llama3.2"
		fmt.Printf("Ollama model (default: %s): ", cfg.LLM.Model)
		scanner.Scan()
		if m := strings.TrimSpace(scanner.Text()); m != "" {
			cfg.LLM.Model = m
		}
		return nil // no API key needed
	case "4": // Custom
		cfg.LLM.Provider = "openai"
		fmt.Print("API base URL: ")
		scanner.Scan()
		cfg.LLM.BaseURL = strings.TrimSpace(scanner.Text())
		if cfg.LLM.BaseURL == "" {
			return fmt.Errorf("API base URL is required")
		}
		fmt.Print("Model name: ")
		scanner.Scan()
		cfg.LLM.Model = strings.TrimSpace(scanner.Text())
		if cfg.LLM.Model == "" {
			return fmt.Errorf("model name is required")
		}
		keyURL = ""
	case "5": // Gateway
		cfg.LLM.Provider = "gateway"
		fmt.Print("Gateway key (pp_xxx): ")
		scanner.Scan()
		cfg.LLM.APIKey = strings.TrimSpace(scanner.Text())
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("gateway key is required")
		}
		return nil
	default:
		return fmt.Errorf("invalid choice: %s", providerChoice)
	}

	if keyURL != "" {
		fmt.Println()
		fmt.Printf("  Get your API key here: %s\n", keyURL)
		fmt.Println()
	}

	fmt.Print("API key: ")
	scanner.Scan()
	cfg.LLM.APIKey = strings.TrimSpace(scanner.Text())
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	return nil
}

// ── chat command ──

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive agent session",
		RunE:  runChat,
	}
	cmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	cmd.Flags().Bool("no-web", false, "Disable web console")
	cmd.Flags().Bool("reset", false, "Discard the saved session transcript")
	cmd.Flags().IntP("port", "p", 0, "Web console port (default: auto from config)")
	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	session, cleanup, err := buildSession(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down... waiting for the current turn to finish.")
		cancel()
	}()

	return session.Run(ctx)
}

// buildSession wires config into a ready chat session. The returned cleanup
// shuts down the web console and persists session state.
func buildSession(cmd *cobra.Command) (*chat.Session, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logLevel := cfg.Log.Level
	if cmd != nil {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logLevel = "debug"
		}
	}
	chat.SetupLogger(logLevel)

	// Clients
	gh := github.New(cfg.GitHub.Token)

	var runner sandbox.Runner
	if cfg.Sandbox.Mode == "local" {
		runner = sandbox.NewLocal(cfg.GitHub.Token)
	} else {
		runner = sandbox.New(cfg.Sandbox.BaseURL, cfg.Sandbox.APIKey)
	}

	var search family.Searcher
	if cfg.Search.APIKey != "" {
		search = websearch.New(cfg.Search.BaseURL, cfg.Search.APIKey)
	}

	// Delegates run one-shot prompts on the same model.
	delegate, err := llm.NewProvider(&cfg.LLM, "", 4096)
	if err != nil {
		return nil, nil, err
	}

	reg, sb := family.NewRegistry(family.Deps{
		GitHub:      gh,
		Runner:      runner,
		Search:      search,
		Delegate:    delegate,
		ScratchDir:  filepath.Join(config.Dir(), "scratchpad"),
		MaxParallel: cfg.Chat.MaxParallelTools,
	})

	builder := prompt.NewBuilder(reg, cfg.GitHub.AllowedRepo)
	provider, err := llm.NewProvider(&cfg.LLM, builder.SystemPrompt(), 4096)
	if err != nil {
		return nil, nil, err
	}

	state := chat.LoadState(cfg.GitHub.AllowedRepo)
	if cmd != nil {
		if reset, _ := cmd.Flags().GetBool("reset"); reset {
			state.Reset(cfg.GitHub.AllowedRepo)
		}
	}

	ec := protocol.ExecContext{
		AllowedRepo:     cfg.GitHub.AllowedRepo,
		IsMainProtected: cfg.GitHub.ProtectMain,
		DefaultBranch:   cfg.GitHub.DefaultBranch,
		ActiveProvider:  provider.Name(),
	}

	// The branch guard should track the repository's actual default branch,
	// not just the configured one.
	branchCtx, cancelBranch := context.WithTimeout(context.Background(), 5*time.Second)
	if branch, err := gh.DefaultBranch(branchCtx, cfg.GitHub.AllowedRepo); err == nil && branch != "" {
		ec.DefaultBranch = branch
	} else if err != nil {
		slog.Debug("default branch lookup failed, using configured value", "error", err)
	}
	cancelBranch()

	session := chat.New(provider, reg, sb, ec, state)

	cleanup := func() {
		_ = state.Save()
	}

	// Web console (unless disabled).
	noWeb := false
	listen := cfg.Web.Listen
	pinned := false
	if cmd != nil {
		noWeb, _ = cmd.Flags().GetBool("no-web")
		if p, _ := cmd.Flags().GetInt("port"); p > 0 {
			listen = fmt.Sprintf("127.0.0.1:%d", p)
			pinned = true
		}
	}
	if cfg.Web.Enabled && !noWeb {
		hub := web.NewEventHub()
		srv := web.New(hub, state, listen)
		actualPort, startErr := srv.Start(pinned)
		if startErr != nil {
			fmt.Printf("Warning: web console unavailable: %s\n", startErr)
		} else {
			session.OnEvent = func(eventType, message string, data any) {
				hub.Publish(web.Event{Type: eventType, Message: message, Data: data})
			}
			fmt.Printf("Console: http://127.0.0.1:%d\n", actualPort)
			cleanup = func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer shutdownCancel()
				_ = srv.Shutdown(shutdownCtx)
				_ = state.Save()
			}
		}
	}

	return session, cleanup, nil
}

// ── detect command ──

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [text]",
		Short: "Detect tool calls in text (reads stdin when no argument)",
		Long: "Runs the call detection pipeline on the given text and prints the\n" +
			"scheduled batch as JSON. Useful for debugging model output offline.",
		RunE: runDetect,
	}
}

func runDetect(_ *cobra.Command, args []string) error {
	text, err := inputText(args)
	if err != nil {
		return err
	}

	reg := offlineRegistry()
	batch := protocol.NewDetector(reg).DetectAll(text)

	out := struct {
		ReadOnly []protocol.Invocation `json:"read_only"`
		Mutating *protocol.Invocation  `json:"mutating,omitempty"`
	}{batch.ReadOnly, batch.Mutating}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ── diagnose command ──

func diagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose [text]",
		Short: "Explain why text yields no tool calls",
		RunE:  runDiagnose,
	}
}

func runDiagnose(_ *cobra.Command, args []string) error {
	text, err := inputText(args)
	if err != nil {
		return err
	}

	reg := offlineRegistry()
	if !protocol.NewDetector(reg).DetectAll(text).Empty() {
		fmt.Println("Text contains valid tool calls; nothing to diagnose.")
		return nil
	}

	d := protocol.NewDiagnoser(reg).Diagnose(text)
	if d == nil {
		fmt.Println("No tool-call attempt found. The text reads as a plain reply.")
		return nil
	}

	fmt.Printf("Reason:         %s\n", d.Reason)
	if d.ToolName != "" {
		fmt.Printf("Tool:           %s\n", d.ToolName)
	}
	fmt.Printf("Telemetry only: %v\n", d.TelemetryOnly)
	fmt.Printf("\n%s\n", d.Message)
	return nil
}

// offlineRegistry builds a registry with no backends. Validation and
// detection never touch the network, so nil clients are fine here.
func offlineRegistry() *protocol.Registry {
	reg, _ := family.NewRegistry(family.Deps{
		ScratchDir:  filepath.Join(config.Dir(), "scratchpad"),
		MaxParallel: protocol.DefaultMaxParallel,
	})
	return reg
}

// inputText returns the first positional argument, or all of stdin.
func inputText(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no input: pass text as an argument or pipe it to stdin")
	}
	return string(data), nil
}

// ── serve command ──

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web console headless (used by the background service)",
		RunE:  runServe,
	}
	cmd.Flags().IntP("port", "p", 0, "Web console port")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	chat.SetupLogger(cfg.Log.Level)

	release, err := chat.AcquireLock()
	if err != nil {
		return err
	}
	defer release()

	listen := cfg.Web.Listen
	pinned := false
	if p, _ := cmd.Flags().GetInt("port"); p > 0 {
		listen = fmt.Sprintf("127.0.0.1:%d", p)
		pinned = true
	}

	state := chat.LoadState(cfg.GitHub.AllowedRepo)
	hub := web.NewEventHub()
	srv := web.New(hub, state, listen)
	actualPort, err := srv.Start(pinned)
	if err != nil {
		return err
	}
	fmt.Printf("patchwork console listening on http://127.0.0.1:%d\n", actualPort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ── status command ──

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service and session status",
		RunE:  runStatus,
	}
}

func runStatus(_ *cobra.Command, _ []string) error {
	// Show service status if platform supports it.
	if mgr, err := daemon.New(); err == nil {
		st, _ := mgr.Status()
		if st != nil {
			switch {
			case !st.Installed:
				fmt.Println("Service:      not installed")
			case st.Running:
				fmt.Printf("Service:      running (PID %d)\n", st.PID)
			default:
				fmt.Println("Service:      stopped")
			}
			fmt.Printf("Log file:     %s\n", st.LogPath)
			fmt.Println()
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("Repository:   %s (default branch %s, protected: %v)\n",
		cfg.GitHub.AllowedRepo, cfg.GitHub.DefaultBranch, cfg.GitHub.ProtectMain)
	fmt.Printf("Sandbox:      %s\n", cfg.Sandbox.Mode)
	fmt.Printf("LLM:          %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)

	state := chat.LoadState(cfg.GitHub.AllowedRepo)
	if state.Turns > 0 {
		fmt.Printf("\n--- Session ---\n")
		fmt.Printf("Session:      %s\n", state.SessionID)
		fmt.Printf("Turns:        %d\n", state.Turns)
		fmt.Printf("Tool calls:   %d (%d errors)\n", state.ToolCalls, state.ToolErrors)
		fmt.Printf("Corrections:  %d\n", state.Corrections)
		fmt.Printf("Guard blocks: %d\n", state.GuardBlocks)
		fmt.Printf("Last active:  %s\n", state.LastActive.Format(time.RFC3339))
	}

	return nil
}

// ── sessions command ──

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage saved chat sessions",
	}

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions idle longer than --days",
		RunE:  runSessionsPrune,
	}
	prune.Flags().Int("days", 30, "Delete sessions idle for more than this many days")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved sessions",
			RunE:  runSessionsList,
		},
		&cobra.Command{
			Use:   "delete <owner/repo>",
			Short: "Delete the saved session for a repository",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				if err := chat.DeleteSession(args[0]); err != nil {
					return err
				}
				fmt.Printf("Deleted session for %s\n", args[0])
				return nil
			},
		},
		prune,
	)
	return cmd
}

func runSessionsList(_ *cobra.Command, _ []string) error {
	sessions, err := chat.Sessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No saved sessions.")
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("%-40s %3d turns  last active %s\n",
			s.Repo, s.Turns, s.LastActive.Format("2006-01-02 15:04"))
	}
	return nil
}

func runSessionsPrune(cmd *cobra.Command, _ []string) error {
	days, _ := cmd.Flags().GetInt("days")
	removed, err := chat.PruneSessions(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d session(s) idle longer than %d days.\n", removed, days)
	return nil
}

// ── config command ──

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current config (API keys redacted)",
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print config file path",
			Run: func(_ *cobra.Command, _ []string) {
				fmt.Println(config.Path())
			},
		},
	)
	return cmd
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	redacted := cfg.Redact()
	return toml.NewEncoder(os.Stdout).Encode(redacted)
}

// ── version command ──

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("patchwork %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// ── update command ──

func updateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update patchwork to the latest version",
		RunE:  runUpdate,
	}
	cmd.Flags().Bool("check", false, "Only check for updates, don't install")
	return cmd
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	checkOnly, _ := cmd.Flags().GetBool("check")

	fmt.Printf("Current version: %s\n", version)
	fmt.Print("Checking for updates... ")

	info, err := updater.CheckUpdate(version)
	if err != nil {
		return err
	}
	if info == nil {
		fmt.Println("already up to date.")
		return nil
	}

	fmt.Printf("v%s available!\n", info.Version)
	if info.Changelog != "" {
		fmt.Printf("Changelog: %s\n", info.Changelog)
	}

	if checkOnly {
		return nil
	}

	fmt.Println()
	return updater.Apply(info)
}

// ── service management commands ──

func installCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install patchwork as a background service",
		RunE:  runInstall,
	}
}

func uninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Stop and remove background service",
		RunE:  runUninstall,
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the background service",
		RunE:  runStart,
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background service",
		RunE:  runStop,
	}
}

func restartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the background service",
		RunE:  runRestart,
	}
}

func runInstall(_ *cobra.Command, _ []string) error {
	// Config must exist before installing.
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("config not found — run 'patchwork init' first")
	}

	mgr, err := daemon.New()
	if err != nil {
		return err
	}

	st, _ := mgr.Status()
	if st != nil && st.Installed {
		fmt.Println("Service is already installed. Reinstalling...")
		_ = mgr.Uninstall()
	}

	fmt.Println("Installing patchwork as background service...")
	if err := mgr.Install(); err != nil {
		return fmt.Errorf("install failed: %w", err)
	}

	fmt.Printf("Log file:  %s\n", daemon.LogPath())
	fmt.Println("Service installed and started.")
	return nil
}

func runUninstall(_ *cobra.Command, _ []string) error {
	mgr, err := daemon.New()
	if err != nil {
		return err
	}

	st, _ := mgr.Status()
	if st != nil && !st.Installed {
		fmt.Println("Service not installed.")
		return nil
	}

	if err := mgr.Uninstall(); err != nil {
		return fmt.Errorf("uninstall failed: %w", err)
	}
	fmt.Println("Service stopped and removed.")
	return nil
}

func runStart(_ *cobra.Command, _ []string) error {
	mgr, err := daemon.New()
	if err != nil {
		return err
	}

	st, _ := mgr.Status()
	if st != nil && !st.Installed {
		return fmt.Errorf("service not installed — run 'patchwork install' first")
	}

	if err := mgr.Start(); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}
	fmt.Println("Service started.")
	return nil
}

func runStop(_ *cobra.Command, _ []string) error {
	mgr, err := daemon.New()
	if err != nil {
		return err
	}

	if err := mgr.Stop(); err != nil {
		return fmt.Errorf("stop failed: %w", err)
	}
	fmt.Println("Service stopped.")
	return nil
}

func runRestart(_ *cobra.Command, _ []string) error {
	mgr, err := daemon.New()
	if err != nil {
		return err
	}

	st, _ := mgr.Status()
	if st != nil && !st.Installed {
		return fmt.Errorf("service not installed — run 'patchwork install' first")
	}

	if err := mgr.Restart(); err != nil {
		return fmt.Errorf("restart failed: %w", err)
	}
	fmt.Println("Service restarted.")
	return nil
}
