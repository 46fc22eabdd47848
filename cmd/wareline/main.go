package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/warelinehq/wareline/internal/config"
	"github.com/warelinehq/wareline/internal/gateway"
	"github.com/warelinehq/wareline/internal/store"
	"github.com/warelinehq/wareline/internal/templates"
)

var rootCmd = &cobra.Command{
	Use:   "wareline",
	Short: "wareline - warehouse inventory chat assistant",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway (channels + reminders)",
	RunE:  runServe,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat from the terminal in single message or REPL mode",
	RunE:  runChat,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and seed demo inventory",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show wareline status",
	RunE:  runStatus,
}

var (
	messageFlag  string
	userFlag     string
	templateFlag string
)

func init() {
	chatCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Single message to send")
	chatCmd.Flags().StringVarP(&userFlag, "user", "u", "cli", "User ID to chat as")
	onboardCmd.Flags().StringVarP(&userFlag, "user", "u", "cli", "User ID to seed demo data for")
	onboardCmd.Flags().StringVarP(&templateFlag, "template", "t", "", "Column template for the demo warehouse")
	rootCmd.AddCommand(serveCmd, chatCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
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

// ChatOptions allows injecting IO in tests.
type ChatOptions struct {
	Stdin  io.Reader
	Stdout io.Writer
}

func runChat(cmd *cobra.Command, args []string) error {
	return runChatWithOptions(ChatOptions{})
}

func runChatWithOptions(opts ChatOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// The terminal REPL talks to the controller directly; no listeners.
	cfg.Channels.Web.Enabled = false
	cfg.Channels.Telegram.Enabled = false

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	defer func() { _ = gw.Store().Close() }()

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	ctx := context.Background()

	if messageFlag != "" {
		fmt.Fprintln(stdout, gw.Respond(ctx, userFlag, messageFlag))
		return nil
	}

	fmt.Fprintln(stdout, "wareline chat (type 'exit' to quit)")
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		fmt.Fprintln(stdout, gw.Respond(ctx, userFlag, input))
	}
	return nil
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

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
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := seedDemo(context.Background(), st, cfg.TemplatesDir(), userFlag, templateFlag); err != nil {
		return err
	}

	fmt.Printf("Store ready: %s\n", cfg.DBPath())
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Run 'wareline chat -m \"show me my sectors list\"' to test")
	fmt.Println("  2. Run 'wareline serve' to start the gateway")
	fmt.Printf("  3. Optionally set an API key in %s for free-form answers\n", cfgPath)

	return nil
}

// seedDemo creates Sector 1 with Warehouse 1 for the user unless they already
// exist, using the named column template (builtin default when empty).
func seedDemo(ctx context.Context, st store.Store, templatesDir, owner, templateName string) error {
	tmpl, err := templates.Find(templatesDir, templateName)
	if err != nil {
		return fmt.Errorf("resolve template: %w", err)
	}

	sec, err := st.FindSectorByName(ctx, "Sector 1", owner)
	if err == nil {
		fmt.Printf("Demo sector already exists for %s\n", owner)
	} else {
		sector := store.Sector{ID: uuid.NewString(), Name: "Sector 1", Owner: owner, Location: "Demo"}
		if _, err := st.CreateSector(ctx, sector); err != nil {
			return fmt.Errorf("seed sector: %w", err)
		}
		sec = &sector
		fmt.Printf("Created demo sector for %s\n", owner)
	}

	if _, err := st.FindWarehouseByName(ctx, "Warehouse 1", sec.ID, owner); err == nil {
		fmt.Printf("Demo warehouse already exists for %s\n", owner)
		return nil
	}

	warehouse := store.Warehouse{
		ID:       uuid.NewString(),
		Name:     "Warehouse 1",
		Owner:    owner,
		SectorID: sec.ID,
		Columns:  tmpl.Columns,
	}
	if _, err := st.CreateWarehouse(ctx, warehouse); err != nil {
		return fmt.Errorf("seed warehouse: %w", err)
	}
	fmt.Printf("Created demo warehouse for %s (template %s)\n", owner, tmpl.Name)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Assistant: %s\n", cfg.Assistant.Name)
	fmt.Printf("Store: %s\n", cfg.DBPath())
	if cfg.Provider.APIKey != "" && len(cfg.Provider.APIKey) > 8 {
		masked := cfg.Provider.APIKey[:4] + "..." + cfg.Provider.APIKey[len(cfg.Provider.APIKey)-4:]
		fmt.Printf("API Key: %s (model %s)\n", masked, cfg.Provider.Model)
	} else if cfg.Provider.APIKey != "" {
		fmt.Printf("API Key: set (model %s)\n", cfg.Provider.Model)
	} else {
		fmt.Println("API Key: not set (LLM fallback disabled)")
	}
	fmt.Printf("Web: enabled=%v (%s:%d)\n", cfg.Channels.Web.Enabled, cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Printf("Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)
	fmt.Printf("Reminders: %d configured\n", len(cfg.Reminders))

	if _, err := os.Stat(cfg.DBPath()); err != nil {
		fmt.Println("Store: not initialized (run 'wareline onboard')")
		return nil
	}

	st, err := store.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		fmt.Printf("Store: error (%v)\n", err)
		return nil
	}
	defer st.Close()

	stats, err := st.Stats(context.Background())
	if err != nil {
		fmt.Printf("Store: error (%v)\n", err)
		return nil
	}
	fmt.Printf("Sectors: %d, Warehouses: %d, Logs: %d\n", stats.Sectors, stats.Warehouses, stats.Logs)
	return nil
}
