package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stellarlinkco/finclaw/internal/agent"
	"github.com/stellarlinkco/finclaw/internal/config"
	"github.com/stellarlinkco/finclaw/internal/gateway"
	"github.com/stellarlinkco/finclaw/internal/knowledge"
	"github.com/stellarlinkco/finclaw/internal/provider"
	"github.com/stellarlinkco/finclaw/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "finclaw",
	Short: "finclaw - conversational financial research assistant",
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and data directories",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show finclaw status",
	RunE:  runStatus,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single financial question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive session (type 'history' for the transcript, 'exit' to quit)",
	RunE:  runChat,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List known sessions",
	RunE:  runSessions,
}

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Show a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.yaml]",
	Short: "Ingest documents into the knowledge store",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the full gateway (channels + scheduler + web UI)",
	RunE:  runGateway,
}

var sessionFlag string

func init() {
	askCmd.Flags().StringVarP(&sessionFlag, "session", "s", "", "Session ID to continue")
	chatCmd.Flags().StringVarP(&sessionFlag, "session", "s", "", "Session ID to resume")
	rootCmd.AddCommand(onboardCmd, statusCmd, askCmd, chatCmd, sessionsCmd, historyCmd, ingestCmd, gatewayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildAgent assembles an agent from the config. Providers that are not
// configured are skipped with a note; the agent still works offline.
func buildAgent(cfg *config.Config, stderr io.Writer) (*agent.Agent, *knowledge.Store, error) {
	persist, err := session.NewFileStore(cfg.SessionDir())
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	store := session.NewStore(persist, cfg.Session.MaxHistory)

	opts := agent.Options{TopK: cfg.Knowledge.TopK}

	if c, err := provider.NewLLMClient(cfg); err != nil {
		fmt.Fprintf(stderr, "note: llm provider disabled (%v)\n", err)
	} else {
		opts.LLM = c
	}
	if c, err := provider.NewMarketClient(cfg); err != nil {
		fmt.Fprintf(stderr, "note: market provider disabled (%v)\n", err)
	} else {
		opts.Market = c
	}
	if c, err := provider.NewSearchClient(cfg); err != nil {
		fmt.Fprintf(stderr, "note: search provider disabled (%v)\n", err)
	} else {
		opts.Search = c
	}

	var embedder knowledge.Embedder
	if cfg.Knowledge.Embedding.Enabled {
		if e, err := knowledge.NewEmbedder(cfg); err != nil {
			fmt.Fprintf(stderr, "note: embedder disabled (%v)\n", err)
		} else {
			embedder = e
		}
	}
	kb, err := knowledge.NewStore(cfg.KnowledgeDBPath(), embedder)
	if err != nil {
		fmt.Fprintf(stderr, "note: knowledge store disabled (%v)\n", err)
		kb = nil
	}
	opts.Knowledge = kb

	return agent.New(store, opts), kb, nil
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	for _, dir := range []string{cfg.SessionDir(), filepath.Dir(cfg.KnowledgeDBPath())} {
		_ = os.MkdirAll(dir, 0755)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your API keys\n", cfgPath)
	fmt.Println("  2. Or set FINCLAW_API_KEY / ANTHROPIC_API_KEY (answers)")
	fmt.Println("     and ALPHA_VANTAGE_API_KEY (quotes), FINCLAW_BRAVE_API_KEY (web search)")
	fmt.Println("  3. Run 'finclaw ask \"Compare Apple and Microsoft\"' to test")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Model: %s\n", cfg.Agent.Model)
	fmt.Printf("Provider: %s\n", providerDisplay(cfg.Provider.Type))
	fmt.Printf("API Key: %s\n", maskKey(cfg.Provider.APIKey))
	fmt.Printf("Market Data: %s\n", configuredDisplay(cfg.Market.APIKey))
	fmt.Printf("Web Search: %s\n", configuredDisplay(cfg.Search.BraveAPIKey))
	fmt.Printf("Embeddings: enabled=%v\n", cfg.Knowledge.Embedding.Enabled)
	fmt.Printf("Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)
	fmt.Printf("Web UI: enabled=%v\n", cfg.Channels.WebUI.Enabled)
	fmt.Printf("Sessions dir: %s\n", cfg.SessionDir())

	if kb, err := knowledge.NewStore(cfg.KnowledgeDBPath(), nil); err == nil {
		if n, err := kb.Count(); err == nil {
			fmt.Printf("Knowledge documents: %d\n", n)
		}
		_ = kb.Close()
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ag, kb, err := buildAgent(cfg, os.Stderr)
	if err != nil {
		return err
	}
	if kb != nil {
		defer kb.Close()
	}

	sessionID := sessionFlag
	if sessionID == "" || !ag.ResumeSession(sessionID) {
		sessionID = ag.CreateSession()
	}

	query := strings.Join(args, " ")
	response := ag.ProcessQuery(context.Background(), query, sessionID)
	fmt.Println(response)
	fmt.Printf("\n(session: %s)\n", sessionID)
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ag, kb, err := buildAgent(cfg, os.Stderr)
	if err != nil {
		return err
	}
	if kb != nil {
		defer kb.Close()
	}

	sessionID := sessionFlag
	if sessionID == "" || !ag.ResumeSession(sessionID) {
		sessionID = ag.CreateSession()
	}
	fmt.Printf("finclaw chat, session %s (type 'history' for the transcript, 'exit' to quit)\n", sessionID)

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch input {
		case "exit", "quit":
			return nil
		case "history":
			fmt.Println(ag.SessionHistory(sessionID))
			continue
		}
		fmt.Println(ag.ProcessQuery(ctx, input, sessionID))
	}
	return nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ag, kb, err := buildAgent(cfg, io.Discard)
	if err != nil {
		return err
	}
	if kb != nil {
		defer kb.Close()
	}

	summaries := ag.ListSessions()
	if len(summaries) == 0 {
		fmt.Println("No sessions yet.")
		return nil
	}
	for _, s := range summaries {
		fmt.Printf("%s  %s  %d exchanges", s.SessionID, s.LastAccessed.Format("2006-01-02 15:04"), s.Exchanges)
		if len(s.Companies) > 0 {
			fmt.Printf("  [%s]", strings.Join(s.Companies, ", "))
		}
		fmt.Println()
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ag, kb, err := buildAgent(cfg, io.Discard)
	if err != nil {
		return err
	}
	if kb != nil {
		defer kb.Close()
	}

	fmt.Println(ag.SessionHistory(args[0]))
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Knowledge.Embedding.Enabled {
		return fmt.Errorf("embeddings are disabled; enable knowledge.embedding in %s", config.ConfigPath())
	}

	embedder, err := knowledge.NewEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}
	kb, err := knowledge.NewStore(cfg.KnowledgeDBPath(), embedder)
	if err != nil {
		return fmt.Errorf("open knowledge store: %w", err)
	}
	defer kb.Close()

	docs, err := knowledge.LoadSeedFile(args[0])
	if err != nil {
		return err
	}

	added, err := kb.AddBatch(context.Background(), docs)
	if err != nil {
		return fmt.Errorf("ingest documents: %w", err)
	}
	fmt.Printf("Ingested %d documents from %s\n", added, args[0])
	return nil
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	return gw.Run(context.Background())
}

func providerDisplay(t string) string {
	if t == "" {
		return "anthropic (default)"
	}
	return t
}

func configuredDisplay(key string) string {
	if key == "" {
		return "not configured"
	}
	return "configured"
}

func maskKey(key string) string {
	switch {
	case key == "":
		return "not set"
	case len(key) > 8:
		return key[:4] + "..." + key[len(key)-4:]
	default:
		return "set"
	}
}
