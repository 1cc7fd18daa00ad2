package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jetsetgo/printdesk/internal/auth"
	"github.com/jetsetgo/printdesk/internal/backend"
	"github.com/jetsetgo/printdesk/internal/dashboard"
	"github.com/jetsetgo/printdesk/internal/printer"
	"github.com/jetsetgo/printdesk/internal/tui"
	"github.com/jetsetgo/printdesk/internal/web"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the live dashboard on a local web port",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			logs := web.NewLogBuffer(500)
			a, err := loadApp(flags, io.MultiWriter(os.Stderr, logs.Writer()))
			if err != nil {
				return err
			}
			if port != 0 {
				a.cfg.Server.Port = port
			}

			printers, err := printer.FromConfig(a.cfg)
			if err != nil {
				return err
			}
			defer printers.Close()

			ctl, err := newController(ctx, a, printers)
			if err != nil {
				return err
			}
			server := web.NewServer(a.cfg.Addr(), ctl, printers, logs, a.log)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return ctl.Run(gctx) })
			g.Go(func() error { return server.Start(gctx) })
			return g.Wait()
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Local dashboard port (default from config)")
	return cmd
}

func newTUICmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the live dashboard in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The terminal belongs to the dashboard, so logs are dropped
			a, err := loadApp(flags, io.Discard)
			if err != nil {
				return err
			}

			printers, err := printer.FromConfig(a.cfg)
			if err != nil {
				return err
			}
			defer printers.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			ctl, err := newController(ctx, a, printers)
			if err != nil {
				return err
			}
			views, unsubscribe := ctl.Subscribe()
			defer unsubscribe()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return ctl.Run(gctx) })
			g.Go(func() error {
				defer cancel()
				return tui.Run(gctx, ctl, views)
			})
			return g.Wait()
		},
	}
}

// newController wires the client, the push channel and the printers into a
// dashboard controller
func newController(ctx context.Context, a *app, printers *printer.Manager) (*dashboard.Controller, error) {
	if _, err := a.tokens.Valid(); errors.Is(err, auth.ErrNoToken) {
		a.log.Warn(ctx, "not logged in; run \"printdesk login\" first", "reason", err)
	}

	wsPath := a.cfg.Backend.WSPath
	if wsPath == "" {
		wsPath = a.client.Routes().WS
	}
	wsURL, err := backend.WebSocketURL(a.cfg.BaseURL(), wsPath)
	if err != nil {
		return nil, err
	}

	ctl := dashboard.New(dashboard.Options{
		Backend:     a.client,
		Printers:    printers,
		PrinterID:   a.cfg.DefaultPrinter,
		Credentials: a.tokens,
		PrintDelay:  a.cfg.UI.PrintDelay,
		MessageTTL:  a.cfg.UI.MessageTTL,
		Location:    a.cfg.Location(),
		Logger:      a.log,
	})
	ctl.Connect(backend.ChannelOptions{
		URL:            wsURL,
		Tokens:         a.tokens,
		ReconnectDelay: a.cfg.Backend.ReconnectDelay,
		PingInterval:   a.cfg.Backend.PingInterval,
		Logger:         a.log,
	})
	a.client.OnUnauthorized = ctl.Unauthorized

	return ctl, nil
}
