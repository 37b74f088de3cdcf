package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/cinelist/internal/browse"
	"github.com/mmcdole/cinelist/internal/catalog"
	"github.com/mmcdole/cinelist/internal/config"
	"github.com/mmcdole/cinelist/internal/domain"
	"github.com/mmcdole/cinelist/internal/log"
	"github.com/mmcdole/cinelist/internal/search"
	"github.com/mmcdole/cinelist/internal/store"
	"github.com/mmcdole/cinelist/internal/tmdb"
	"github.com/mmcdole/cinelist/internal/tui"
	"github.com/mmcdole/cinelist/internal/tui/styles"
	"github.com/mmcdole/cinelist/internal/watchlist"
)

// Version is set at build time via -ldflags
var Version = "dev"

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

func main() {
	var showVersion, clearCache bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.BoolVar(&clearCache, "clear-cache", false, "delete cached genres and countries before starting")
	flag.Parse()

	if showVersion {
		fmt.Printf("cinelist %s\n", Version)
		return
	}

	if err := run(clearCache); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(clearCache bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logFile, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	} else {
		defer logFile.Close()
	}
	slog.SetDefault(logger)

	logger.Info("starting cinelist", "version", Version)

	if !cfg.IsConfigured() {
		if err := runSetupFlow(cfg); err != nil {
			return err
		}
	}

	client := tmdb.NewClient(tmdb.ClientConfig{
		BaseURL:   cfg.TMDB.BaseURL,
		APIKey:    cfg.TMDB.APIKey,
		SessionID: cfg.TMDB.SessionID,
		AccountID: cfg.TMDB.AccountID,
		Timeout:   cfg.TMDB.Timeout,
		RetryMax:  cfg.TMDB.RetryMax,
	}, logger)

	ctx := context.Background()

	var account domain.Account
	if cfg.HasSession() {
		account, err = loadAccountWithSpinner(ctx, client)
		if errors.Is(err, domain.ErrAuthFailed) {
			// The saved session was revoked; sign in again
			logger.Warn("saved session rejected", "error", err)
			client.SetSession("", 0)
			if err := config.ClearSession(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			cfg.TMDB.SessionID = ""
		} else if err != nil {
			return fmt.Errorf("failed to load account: %w", err)
		}
	}

	if !cfg.HasSession() {
		account, err = runAuthFlow(ctx, cfg, client, logger)
		if err != nil {
			return err
		}
	}

	if clearCache {
		if err := config.ClearCache(cfg.Cache.Dir); err != nil {
			return err
		}
		logger.Info("cleared cache", "dir", cfg.Cache.Dir)
	}

	cacheStore, err := store.NewCatalogStore(config.ExpandPath(cfg.Cache.Dir), cfg.TMDB.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer cacheStore.Close()

	region := cfg.UI.Region
	if region == "" {
		region = account.CountryCode
	}

	// Create services
	catalogSvc := catalog.NewService(client, cacheStore, cfg.Cache.TTL, logger)
	controller := watchlist.NewController(client, logger)
	movies := browse.New(client, strings.ToUpper(region), logger)
	searchSvc := search.NewService(client, logger)

	logout := func(ctx context.Context) error {
		if err := client.DeleteSession(ctx); err != nil {
			// The local session is cleared either way
			logger.Warn("failed to delete remote session", "error", err)
		}
		if err := config.ClearSession(); err != nil {
			return err
		}
		cacheStore.InvalidateAll()
		return nil
	}

	model := tui.NewModel(tui.Deps{
		Movies:     movies,
		WatchList:  controller,
		Search:     searchSvc,
		Catalog:    catalogSvc,
		Account:    account,
		Region:     strings.ToUpper(region),
		ScrollIdle: cfg.UI.ScrollIdle,
		Logout:     logout,
		Logger:     logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")

	final, err := p.Run()
	if err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	if m, ok := final.(tui.Model); ok {
		m.Close()
		if m.LoggedOut() {
			fmt.Println("✓ Logged out. Run cinelist again to sign in.")
		}
	}

	logger.Info("shutting down")
	return nil
}

// runSetupFlow asks for the TMDB API key on first start
func runSetupFlow(cfg *config.Config) error {
	fmt.Println()
	fmt.Println("Welcome to cinelist!")
	fmt.Println()
	fmt.Println("You need a TMDB API key (https://www.themoviedb.org/settings/api).")

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Enter your API key: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		key := strings.TrimSpace(input)
		if key != "" {
			cfg.TMDB.APIKey = key
			break
		}
		fmt.Println("API key cannot be empty. Please try again.")
	}

	if err := config.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Println("✓ API key saved")
	return nil
}

// runAuthFlow creates a session with the configured method and saves it
func runAuthFlow(ctx context.Context, cfg *config.Config, client *tmdb.Client, logger *slog.Logger) (domain.Account, error) {
	flow, err := tmdb.NewAuthFlow(cfg.Auth.Method, client, cfg.TMDB.AuthURL, logger)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to create auth flow: %w", err)
	}

	result, err := flow.Run(ctx)
	if err != nil {
		return domain.Account{}, fmt.Errorf("authentication failed: %w", err)
	}

	if err := config.SaveSession(result.SessionID, result.Account.ID); err != nil {
		return domain.Account{}, fmt.Errorf("failed to save session: %w", err)
	}
	cfg.TMDB.SessionID = result.SessionID
	cfg.TMDB.AccountID = result.Account.ID

	fmt.Println("✓ Session saved")
	return result.Account, nil
}

// loadAccountWithSpinner fetches the account with a visual spinner
func loadAccountWithSpinner(ctx context.Context, client *tmdb.Client) (domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	type result struct {
		account domain.Account
		err     error
	}
	resultCh := make(chan result, 1)

	go func() {
		account, err := client.Account(ctx)
		resultCh <- result{account, err}
	}()

	frame := 0
	fmt.Printf("\r%s Connecting to TMDB...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case res := <-resultCh:
			fmt.Print(clearSpinnerLine)
			return res.account, res.err

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Connecting to TMDB...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return domain.Account{}, fmt.Errorf("connecting to TMDB: %w", domain.ErrServerOffline)
		}
	}
}
