package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyike/marktbot/consts"
	"github.com/dyike/marktbot/internal/config"
	"github.com/dyike/marktbot/internal/server"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "marktbot",
		Short: "marktbot - AI-assisted Marktplaats buyer",
		Long: `marktbot searches Marktplaats, asks a language model which listings are worth buying,
messages the sellers and negotiates the price up to an agreed deal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.Debug = true
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(newSearchCmd(cfg))
	rootCmd.AddCommand(newCheckCmd(cfg))
	rootCmd.AddCommand(newLoginCmd(cfg))
	rootCmd.AddCommand(newServeCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	return rootCmd
}

func newSearchCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search KEYWORD",
		Short: "Search listings, evaluate them and message promising sellers",
		Long: `Run one search round for a keyword. Every listing is evaluated by the model and
favorable ones get an opening message.
Example: marktbot search "koffiemachine defect" --strategy=html --condition=Defect`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strategy, _ := cmd.Flags().GetString("strategy"); strategy != "" {
				cfg.SearchStrategy = strategy
			}
			if conditions, _ := cmd.Flags().GetStringSlice("condition"); len(conditions) > 0 {
				cfg.Conditions = conditions
			}
			return runSearch(cmd.Context(), cfg, args[0])
		},
	}

	cmd.Flags().String("strategy", "", "Listing source: api, embedded or html")
	cmd.Flags().StringSlice("condition", nil, "Condition filter, repeatable")

	return cmd
}

func newCheckCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Poll the inbox once and advance negotiations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cfg)
		},
	}
}

func newLoginCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify marketplace credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), cfg)
		},
	}
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP front-end",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.ListenAddr = addr
			}
			interval, _ := cmd.Flags().GetDuration("poll-interval")
			return runServe(cmd.Context(), cfg, interval)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from PORT, else :5000)")
	cmd.Flags().Duration("poll-interval", 0, "Poll the inbox on this interval, 0 disables")

	return cmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("marktbot v%s\n", consts.Version)
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cfg)
		},
	})

	return configCmd
}

func runSearch(ctx context.Context, cfg *config.Config, keyword string) error {
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	DisplayInfo(fmt.Sprintf("Searching %q with the %s strategy", keyword, cfg.SearchStrategy))
	results, err := a.bot.Search(ctx, keyword)
	DisplayResults(results)
	if err != nil {
		return fmt.Errorf("search aborted: %w", err)
	}
	return nil
}

func runCheck(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	sum, err := a.bot.PollInbox(ctx)
	if err != nil {
		return err
	}
	DisplaySummary(sum)

	recs, err := a.bot.Negotiations(ctx)
	if err != nil {
		return err
	}
	DisplayNegotiations(recs)

	if a.history == nil {
		return nil
	}
	for _, tr := range sum.Transitions {
		events, err := a.history.Events(ctx, tr.ListingID)
		if err != nil {
			return err
		}
		DisplayHistory(tr.ListingID, events)
	}
	return nil
}

func runLogin(ctx context.Context, cfg *config.Config) error {
	if !cfg.HasCredentials() {
		if err := PromptForCredentials(cfg); err != nil {
			return err
		}
	}

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.bot.Login(ctx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	DisplaySuccess(fmt.Sprintf("Logged in as %s", cfg.Email))
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, pollInterval time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if pollInterval > 0 {
		go pollLoop(ctx, a, pollInterval)
	}

	srv := server.New(a.bot, a.log.Named("server"))
	DisplayInfo(fmt.Sprintf("Listening on %s", cfg.ListenAddr))
	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}

func pollLoop(ctx context.Context, a *app, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sum, err := a.bot.PollInbox(ctx)
			if err != nil {
				a.log.Error("scheduled inbox poll failed", zap.Error(err))
				continue
			}
			a.log.Info("scheduled inbox poll",
				zap.Int("processed", sum.Processed),
				zap.Int("ignored", sum.Ignored),
				zap.Int("transitions", len(sum.Transitions)),
				zap.Int("deals", sum.Deals))
		}
	}
}

// showConfig displays the current configuration
func showConfig(cfg *config.Config) {
	fmt.Println(titleStyle.Render("marktbot configuration"))
	fmt.Printf("Project Directory:    %s\n", cfg.ProjectDir)
	fmt.Printf("Data Directory:       %s\n", cfg.DataDir)
	fmt.Println()
	fmt.Printf("Marketplace:          %s\n", cfg.BaseURL)
	fmt.Printf("Account:              %s\n", configured(cfg.HasCredentials(), cfg.Email))
	fmt.Printf("HTTP Timeout:         %s\n", cfg.HTTPTimeout)
	fmt.Println()
	fmt.Printf("Search Strategy:      %s\n", cfg.SearchStrategy)
	fmt.Printf("Page Size:            %d\n", cfg.PageSize)
	fmt.Printf("Max Pages:            %d\n", cfg.MaxPages)
	fmt.Printf("Conditions:           %v\n", cfg.Conditions)
	fmt.Println()
	fmt.Printf("LLM Provider:         %s\n", cfg.LLMProvider)
	fmt.Printf("LLM Model:            %s\n", cfg.LLMModel)
	fmt.Printf("LLM API Key:          %s\n", configured(cfg.LLMAPIKey != "", "set"))
	fmt.Println()
	fmt.Printf("Polite Delay:         %s\n", cfg.PoliteDelay)
	fmt.Printf("Item Timeout:         %s\n", cfg.ItemTimeout)
	fmt.Printf("Min Rating:           %d\n", cfg.MinRating)
	fmt.Printf("Favorable Keywords:   %v\n", cfg.FavorableKeywords)
	fmt.Printf("Locale:               %s\n", cfg.Locale)
	fmt.Println()
	fmt.Printf("Store Driver:         %s\n", cfg.StoreDriver)
	if cfg.StoreDriver == consts.Store_SQLite {
		fmt.Printf("Database:             %s\n", cfg.DBPath)
	}
	fmt.Printf("Listen Address:       %s\n", cfg.ListenAddr)
	fmt.Printf("Debug Mode:           %t\n", cfg.Debug)
}

func configured(ok bool, detail string) string {
	if ok {
		return completedStyle.Render("✅ " + detail)
	}
	return errorStyle.Render("❌ not configured")
}

// validateConfig validates the configuration
func validateConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	var warnings []string
	if !cfg.HasCredentials() {
		warnings = append(warnings, "MARKTPLAATS_EMAIL and MARKTPLAATS_PASSWORD are not set")
	}
	if cfg.LLMAPIKey == "" {
		warnings = append(warnings, "LLM_API_KEY is not set")
	}

	if len(warnings) == 0 {
		DisplaySuccess("Configuration is valid")
		return nil
	}
	for _, w := range warnings {
		DisplayWarning(w)
	}
	DisplayInfo(fmt.Sprintf("Configuration is valid with %d warnings", len(warnings)))
	return nil
}
