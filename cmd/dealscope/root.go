package main

import (
	"errors"

	"github.com/jrsteele09/dealscope-client/internal/config"
	"github.com/spf13/cobra"
)

// sessionAnnotation marks commands that reuse a session saved by an earlier login.
const sessionAnnotation = "dealscope/session"

var errNoPersistedSession = errors.New("the web platform keeps credentials in memory for a single run; set PLATFORM=mobile and SECURE_STORE_PASSPHRASE to reuse a login across commands")

func requiresSession(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[sessionAnnotation] = "true"
	return cmd
}

type rootOptions struct {
	configPath  string
	banner      bool
	showMetrics bool

	app *app
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "dealscope",
		Short:         "Command line client for the DealScope API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts.app = a
			if a.cfg.GetPlatform() == config.PlatformWeb && cmd.Annotations[sessionAnnotation] != "" {
				return errNoPersistedSession
			}
			if opts.banner {
				displayAppname(cmd.OutOrStdout(), a.cfg.GetAppName())
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.showMetrics && opts.app != nil {
				return opts.app.dumpMetrics(cmd.ErrOrStderr())
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.GetEnv("CONFIG_PATH", ""), "path to a YAML config file")
	flags.BoolVar(&opts.banner, "banner", false, "print the application banner")
	flags.BoolVar(&opts.showMetrics, "metrics", false, "print request counters to stderr when done")

	root.AddCommand(
		newLoginCommand(opts),
		requiresSession(newLogoutCommand(opts)),
		requiresSession(newWhoamiCommand(opts)),
		requiresSession(newSearchCommand(opts)),
		requiresSession(newCompsCommand(opts)),
		requiresSession(newSessionsCommand(opts)),
	)
	return root
}
