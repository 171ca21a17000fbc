package main

import (
	"context"
	"fmt"
	"os"

	"channel_chat_server/internal/config"
	"channel_chat_server/internal/dao/gormdb"
	"channel_chat_server/internal/seed"
	"channel_chat_server/pkg/util/jwt"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	printTokens bool
)

var rootCmd = &cobra.Command{
	Use:   "chat_seed",
	Short: "Create demo users and channels",
	Long: `chat_seed creates the demo users and channels used by the realtime chat server.
Existing users (by username) and channels (by name) are left untouched, so it is safe to run repeatedly.

Examples:
  chat_seed                              # use configs/config.toml
  chat_seed --config configs/local.toml  # explicit config file
  chat_seed --tokens                     # also print access tokens for the demo users`,
	RunE: runSeed,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path (default: search configs/)")
	rootCmd.Flags().BoolVar(&printTokens, "tokens", false, "print an access token for every seeded user")
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.GetConfig(), nil
	}
	return config.LoadFile(configPath)
}

func runSeed(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	db, repos, err := gormdb.Init(&conf.DatabaseConfig, conf.Mode)
	if err != nil {
		return err
	}
	defer func() { _ = gormdb.Close(db) }()

	result, err := seed.Run(context.Background(), repos, seed.DefaultPlan())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "created %d records\n\n", result.Created)
	fmt.Fprintln(out, "users:")
	tokens := jwt.NewManager(conf.Secret, conf.AccessTokenExpiry)
	for _, u := range result.Users {
		fmt.Fprintf(out, "  %-8s %s\n", u.Username, u.ID)
		if printTokens {
			token, err := tokens.GenerateAccessToken(u.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "           token: %s\n", token)
		}
	}
	fmt.Fprintln(out, "channels:")
	for _, c := range result.Channels {
		fmt.Fprintf(out, "  %-8s %-5s %s\n", c.Name, c.Type, c.ID)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
