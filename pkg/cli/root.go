// Package cli implements the lightdash command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	lightdash "lightdash-go"
	"lightdash-go/domain"
)

var version = "dev"

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]any{
				"error": err.Error(),
			}
			var apiErr *domain.APIError
			if errors.As(err, &apiErr) {
				errObj["name"] = apiErr.Name
				errObj["status_code"] = apiErr.StatusCode
			}
			_ = PrintJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// settings holds the resolved connection settings shared by all
// subcommands.
type settings struct {
	instanceURL string
	accessToken string
	projectUUID string
	output      string
}

func (s *settings) client() (*lightdash.Client, error) {
	return lightdash.NewClient(lightdash.Config{
		InstanceURL: s.instanceURL,
		AccessToken: s.accessToken,
		ProjectUUID: s.projectUUID,
	})
}

func newRootCmd() *cobra.Command {
	var (
		s       settings
		profile string
	)

	rootCmd := &cobra.Command{
		Use:           "lightdash",
		Short:         "Lightdash semantic layer CLI",
		Long:          "Command-line interface for querying a Lightdash project.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				// Config file is optional
				cfg = &UserConfig{
					CurrentProfile: "default",
					Profiles:       map[string]Profile{},
				}
			}
			p := cfg.ActiveProfile(profile)

			// Precedence: flag > env > profile > default
			if !cmd.Flags().Changed("instance-url") {
				if v := os.Getenv(lightdash.EnvInstanceURL); v != "" {
					s.instanceURL = v
				} else if p.InstanceURL != "" {
					s.instanceURL = p.InstanceURL
				}
			}
			if !cmd.Flags().Changed("token") {
				if v := os.Getenv(lightdash.EnvAccessToken); v != "" {
					s.accessToken = v
				} else if p.AccessToken != "" {
					s.accessToken = p.AccessToken
				}
			}
			if !cmd.Flags().Changed("project") {
				if v := os.Getenv(lightdash.EnvProjectUUID); v != "" {
					s.projectUUID = v
				} else if p.ProjectUUID != "" {
					s.projectUUID = p.ProjectUUID
				}
			}
			if !cmd.Flags().Changed("output") && p.Output != "" {
				s.output = p.Output
			}
			return validateOutputFormat(s.output)
		},
	}

	rootCmd.PersistentFlags().StringVar(&s.instanceURL, "instance-url", "", "Lightdash instance URL")
	rootCmd.PersistentFlags().StringVar(&s.accessToken, "token", "", "Personal access token")
	rootCmd.PersistentFlags().StringVar(&s.projectUUID, "project", "", "Project UUID")
	rootCmd.PersistentFlags().StringVarP(&s.output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Config profile to use")

	rootCmd.AddCommand(newModelsCmd(&s))
	rootCmd.AddCommand(newQueryCmd(&s))
	rootCmd.AddCommand(newSQLCmd(&s))
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}
