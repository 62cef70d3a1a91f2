/*
main.go - Application entry point

PURPOSE:
  Command line for the capacity engine: runs the HTTP server, applies
  database migrations and seeds demo scenarios.

COMMANDS:
  serve                     Start the HTTP API (default when no command given)
  migrate                   Apply pending migrations and print the version
  scenario list             Print the registered demo scenarios
  scenario load <id>        Reset a tenant and seed it with a scenario

GLOBAL FLAGS:
  --config   TOML config file (default: capacity.toml, missing file = defaults)
  --db       Overrides database.path. ":memory:" keeps everything in process
  --port     Overrides server.port

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection

EXAMPLES:
  ./server serve --config=./capacity.toml
  ./server --db=":memory:" --port=3000
  ./server scenario load marketing-team --client=acme

SEE ALSO:
  - config/config.go: Configuration layout and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/capacity-engine/api"
	"github.com/warp/capacity-engine/config"
	"github.com/warp/capacity-engine/generic"
	"github.com/warp/capacity-engine/store/sqlite"
)

var (
	configPath string
	dbOverride string
	portFlag   int
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Team capacity and budget engine",
	Long:  `Computes team capacity, workload and budget execution for marketing teams, served over a JSON API.`,
	RunE:  runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// sqlite.New migrates on open
		store, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()

		version, dirty, err := store.MigrationVersion()
		if err != nil {
			return err
		}
		fmt.Printf("Database: %s\n", cfg.Database.Path)
		fmt.Printf("Schema version: %d\n", version)
		if dirty {
			fmt.Println("Warning: schema is marked dirty; a previous migration failed halfway.")
		}
		return nil
	},
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Manage demo scenarios",
}

var scenarioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List demo scenarios",
	Run: func(cmd *cobra.Command, args []string) {
		for _, s := range api.Scenarios() {
			fmt.Printf("%-18s %s\n", s.ID, s.Description)
		}
	},
}

var scenarioLoadCmd = &cobra.Command{
	Use:   "load <id>",
	Short: "Reset a tenant and seed it with a scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := cmd.Flags().GetString("client")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()

		handler := api.NewHandler(store, cfg)
		if err := handler.LoadScenarioByID(cmd.Context(), args[0], generic.ClientSlug(client)); err != nil {
			return err
		}
		fmt.Printf("Loaded %s into %s\n", args[0], client)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "capacity.toml", "TOML config file")
	rootCmd.PersistentFlags().StringVar(&dbOverride, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0, "HTTP server port (overrides config)")

	scenarioLoadCmd.Flags().String("client", api.DefaultScenarioClient, "Tenant slug to seed")

	scenarioCmd.AddCommand(scenarioListCmd)
	scenarioCmd.AddCommand(scenarioLoadCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(scenarioCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dbOverride != "" {
		cfg.Database.Path = dbOverride
	}
	if portFlag != 0 {
		cfg.Server.Port = portFlag
	}
	return cfg, cfg.Validate()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, cfg)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Server.Port)
		log.Printf("API available at http://localhost:%d/api", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}
