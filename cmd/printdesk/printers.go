package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jetsetgo/printdesk/internal/printer"
)

func newPrintersCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "printers",
		Short: "Inspect, test and discover printers",
	}
	cmd.AddCommand(
		newPrintersListCmd(flags),
		newPrintersTestCmd(flags),
		newPrintersDiscoverCmd(),
	)
	return cmd
}

func newPrintersListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured printers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			printers, err := printer.FromConfig(a.cfg)
			if err != nil {
				return err
			}
			defer printers.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSTATUS\t")
			for _, p := range printers.List() {
				id := p.ID
				if p.Default {
					id += " *"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", id, p.Name, p.Type, p.Status)
			}
			return tw.Flush()
		},
	}
}

func newPrintersTestCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "test [id]",
		Short: "Print a test page (default printer when id is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			printers, err := printer.FromConfig(a.cfg)
			if err != nil {
				return err
			}
			defer printers.Close()

			var id string
			if len(args) == 1 {
				id = args[0]
			}
			if err := printers.TestPrint(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "test page sent")
			return nil
		},
	}
}

func newPrintersDiscoverCmd() *cobra.Command {
	var (
		subnets []string
		port    int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan local subnets for raw network printers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, s := range subnets {
				if !strings.HasSuffix(s, ".") {
					subnets[i] = s + "."
				}
			}

			found := printer.Discover(cmd.Context(), subnets, port, timeout)
			if len(found) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no printers found")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tADDRESS\tPORT\t")
			for _, p := range found {
				fmt.Fprintf(tw, "%s\t%s\t%d\t\n", p.ID, p.Address, p.Port)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringSliceVar(&subnets, "subnet", []string{"192.168.1.", "192.168.0."}, "/24 prefixes to scan")
	cmd.Flags().IntVar(&port, "port", 9100, "Raw print port")
	cmd.Flags().DurationVar(&timeout, "timeout", 100*time.Millisecond, "Per-host connect timeout")
	return cmd
}
