package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication helpers",
	}
	cmd.AddCommand(newAuthLoginCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		instanceURL string
		projectUUID string
		profileName string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a personal access token to a config profile",
		Long: "Prompt for a personal access token and save it, together with the " +
			"instance URL and project UUID, to ~/.lightdash/config.yaml.",
		Example: `  lightdash auth login --instance-url https://app.lightdash.cloud --project 3675b69e-8324-4110-bdca-059031aa8da3`,
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			token, err := promptToken(os.Stdin)
			if err != nil {
				return err
			}
			if token == "" {
				return fmt.Errorf("no token entered")
			}

			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = &UserConfig{Profiles: make(map[string]Profile)}
			}
			name := profileName
			if name == "" {
				name = cfg.CurrentProfile
			}
			if name == "" {
				name = "default"
			}
			cfg.CurrentProfile = name
			if cfg.Profiles == nil {
				cfg.Profiles = make(map[string]Profile)
			}

			p := cfg.Profiles[name]
			p.AccessToken = token
			if instanceURL != "" {
				p.InstanceURL = instanceURL
			}
			if projectUUID != "" {
				p.ProjectUUID = projectUUID
			}
			cfg.Profiles[name] = p

			if err := SaveUserConfig(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(os.Stdout, "Token saved to profile %q\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&instanceURL, "instance-url", "", "Lightdash instance URL to save")
	cmd.Flags().StringVar(&projectUUID, "project", "", "Project UUID to save")
	cmd.Flags().StringVar(&profileName, "name", "", "Profile to write (default: current profile)")
	return cmd
}

// promptToken reads a token without echo when stdin is a terminal and
// falls back to a plain line read otherwise, so piped input works.
func promptToken(in *os.File) (string, error) {
	fmt.Fprint(os.Stderr, "Personal access token: ")
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
