// Command commune is the terminal client for a Commune server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/communehq/commune/internal/apiclient"
	"github.com/communehq/commune/internal/cli/clilog"
	"github.com/communehq/commune/internal/cli/config"
	"github.com/communehq/commune/internal/cli/credentials"
	"github.com/communehq/commune/internal/cli/output"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in, run `commune login` first")

// app is the state every subcommand shares, built before the command runs.
type app struct {
	cfg    *config.Config
	log    *log.Logger
	closer io.Closer
	client *apiclient.Client
	creds  *credentials.Credentials
	out    *output.Printer
}

var (
	configPath string
	verbose    bool
	jsonOutput bool

	cli = &app{}
)

var rootCmd = &cobra.Command{
	Use:   "commune",
	Short: "Commune in your terminal",
	Long: `commune talks to a Commune server: read the feed, follow comment
threads, react, follow neighbours and file complaints. Run "commune tui"
for the three-pane view.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cli.init()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		cli.close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.config/commune/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests at debug level")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(feedCmd, commentsCmd, commentCmd, reactCmd)
	rootCmd.AddCommand(followCmd, notificationsCmd, communitiesCmd, complainCmd)
	rootCmd.AddCommand(tuiCmd)
}

func (a *app) init() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log, a.closer = clilog.New(cfg.LogFile, cfg.LogLevel, verbose)
	a.out = output.Stdout(jsonOutput)

	a.creds, err = credentials.Load(cfg.CredentialsPath())
	if err != nil {
		a.log.Warn("Ignoring unreadable credentials", "err", err)
		a.creds = nil
	}

	opts := apiclient.Options{Timeout: cfg.Timeout, Logger: a.log}
	if a.creds.IsValid(time.Now()) {
		opts.Token = a.creds.Token
	}
	a.client = apiclient.New(cfg.APIBaseURL, opts)
	a.log.Debug("Client ready", "api", cfg.APIBaseURL, "config", cfg.File)
	return nil
}

func (a *app) close() {
	if a.closer != nil {
		_ = a.closer.Close()
	}
}

// requireLogin fails fast when there is no usable token.
func (a *app) requireLogin() error {
	if a.client.Token() == "" {
		return errNotLoggedIn
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if cli.out != nil {
			if apiclient.IsUnauthorized(err) {
				err = fmt.Errorf("%w (session expired? run `commune login`)", err)
			}
			cli.out.Error(err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		cli.close()
		os.Exit(1)
	}
}
