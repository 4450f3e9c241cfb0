package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"habitflow/internal/client"
	"habitflow/pkg/logger"
)

var (
	// Global flags
	apiURL    string
	tokenFile string
	verbose   bool

	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "habitctl",
	Short: "Command line client for the habitflow API",
	Long: `habitctl talks to a running habitflow API.

Log in once, then check off today's routines and read your streaks and
insights from the terminal. The seed and migrate commands connect to the
database directly using the service configuration.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = logger.NewCLILogger(verbose)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".habitflow-token"
	}
	return filepath.Join(dir, "habitflow", "token")
}

func defaultAPIURL() string {
	if v := os.Getenv("HABITFLOW_API"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(tokenFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(tokenFile, []byte(token+"\n"), 0o600)
}

// authedClient returns a client carrying the saved token.
func authedClient() (*client.Client, error) {
	raw, err := os.ReadFile(tokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("not logged in, run 'habitctl login' first")
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	return client.New(apiURL, client.WithToken(strings.TrimSpace(string(raw)))), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", defaultAPIURL(), "habitflow API base URL (env HABITFLOW_API)")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", defaultTokenFile(), "where the login token is stored")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(loginCmd, todayCmd, toggleCmd, reportCmd, seedCmd, migrateCmd, outboxCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
