package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jetsetgo/printdesk/internal/auth"
	"github.com/jetsetgo/printdesk/internal/backend"
	"github.com/jetsetgo/printdesk/internal/config"
	"github.com/jetsetgo/printdesk/internal/logging"
)

type globalFlags struct {
	configPath string
	server     string
	variant    string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "printdesk: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "printdesk",
		Short: "Operator console for the file-sharing print desk",
		Long: `printdesk keeps a live view of the files users upload to the file-sharing
service and lets an operator print, delete and organise them, from a local web
dashboard, a terminal dashboard or one-shot commands.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file (default: search printdesk.yaml, configs/, user config dir)")
	cmd.PersistentFlags().StringVar(&flags.server, "server", "", "Backend base URL, overrides config and PRINTDESK_SERVER")
	cmd.PersistentFlags().StringVar(&flags.variant, "variant", "", `Backend variant: "api" or "legacy"`)
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newServeCmd(flags),
		newTUICmd(flags),
		newLoginCmd(flags),
		newLogoutCmd(flags),
		newListCmd(flags),
		newUploadCmd(flags),
		newRemoveCmd(flags),
		newPrintCmd(flags),
		newMkdirCmd(flags),
		newCleanCmd(flags),
		newPrintersCmd(flags),
	)
	return cmd
}

// app is what every command needs: configuration, credentials and a client
type app struct {
	cfg    *config.Config
	log    logging.Logger
	tokens *auth.TokenStore
	client *backend.Client
}

// loadApp reads the configuration, applies flag overrides and builds the
// backend client. Logs go to logOut.
func loadApp(flags *globalFlags, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.server != "" {
		cfg.Backend.BaseURL = flags.server
	}
	if flags.variant != "" {
		cfg.Backend.Variant = config.Variant(flags.variant)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logging.New(logOut, flags.verbose)
	tokens := auth.NewTokenStore(cfg.TokenFile)

	return &app{
		cfg:    cfg,
		log:    log,
		tokens: tokens,
		client: backend.NewClient(cfg, tokens, log),
	}, nil
}
