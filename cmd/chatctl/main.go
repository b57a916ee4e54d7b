package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sulestate/internal/client"
)

// Settings come from ~/.chatctl/config.yaml, CHATCTL_* variables and flags,
// in increasing priority.
type settings struct {
	Server       string        `mapstructure:"server"`
	AdminToken   string        `mapstructure:"admin_token"`
	ContactEmail string        `mapstructure:"contact_email"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Stream       bool          `mapstructure:"stream"`
	Home         string        `mapstructure:"home"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "chatctl",
		Short:         "SUL ESTATE support chat from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	home, _ := os.UserHomeDir()
	flags := rootCmd.PersistentFlags()
	flags.String("server", "http://localhost:8080", "API base URL")
	flags.String("admin-token", "", "Firebase ID token for admin commands")
	flags.String("contact-email", "info@sulestate.com", "Address shown when the assistant is unavailable")
	flags.Duration("poll-interval", client.DefaultPollInterval, "Message polling interval")
	flags.Bool("stream", false, "Refresh on websocket events as well as polling")
	flags.String("home", filepath.Join(home, ".chatctl"), "Directory for config and the cached session")

	for _, name := range []string{"server", "admin-token", "contact-email", "poll-interval", "stream", "home"} {
		_ = viper.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}

	cobra.OnInitialize(func() {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(viper.GetString("home"))
		viper.SetEnvPrefix("chatctl")
		viper.AutomaticEnv()
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				fmt.Fprintf(os.Stderr, "Ignoring config file: %v\n", err)
			}
		}
	})

	rootCmd.AddCommand(newVisitorCmd(), newConsoleCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadSettings() (*settings, error) {
	var s settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &s, nil
}

func (s *settings) api() *client.API {
	var opts []client.Option
	if s.AdminToken != "" {
		opts = append(opts, client.WithAdminToken(s.AdminToken))
	}
	return client.NewAPI(s.Server, opts...)
}
