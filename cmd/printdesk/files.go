package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jetsetgo/printdesk/internal/backend"
	"github.com/jetsetgo/printdesk/internal/dashboard"
	"github.com/jetsetgo/printdesk/internal/models"
	"github.com/jetsetgo/printdesk/internal/printer"
	"github.com/jetsetgo/printdesk/internal/render"
	"github.com/jetsetgo/printdesk/internal/state"
)

func newListCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List uploaded files grouped by folder",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			files, err := a.client.ListFiles(cmd.Context())
			if err != nil {
				return err
			}

			store := state.NewStore()
			store.ReplaceAll(files)
			view := render.Render(store.Snapshot(), render.Options{Location: a.cfg.Location()})

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			return printView(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the rendered view as JSON")
	return cmd
}

func printView(w io.Writer, v render.View) error {
	if v.Empty != nil {
		_, err := fmt.Fprintf(w, "%s\n%s\n", v.Empty.Title, v.Empty.Hint)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, folder := range v.Folders {
		fmt.Fprintf(tw, "%s (%s)\n", folder.Name, folder.Summary)
		for _, c := range folder.Cards {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Size, c.Kind, c.Uploaded, c.Badge)
		}
	}
	fmt.Fprintf(tw, "\n%d folders, %d files, %d printed\n", v.Stats.Folders, v.Stats.Files, v.Stats.Printed)
	return tw.Flush()
}

func newUploadCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <folder> <file>...",
		Short: "Create a folder and upload files into it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			folder, err := a.client.CreateFolder(ctx, args[0])
			switch {
			case errors.Is(err, backend.ErrUnsupported):
				folder = models.Folder{Name: args[0]}
			case err != nil:
				return err
			}

			for _, path := range args[1:] {
				if err := uploadOne(cmd, a, folder, path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func uploadOne(cmd *cobra.Command, a *app, folder models.Folder, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := a.client.UploadFile(cmd.Context(), folder, filepath.Base(path), f); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s to %s\n", filepath.Base(path), folder.Name)
	return nil
}

func newRemoveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete files on the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			for _, id := range args {
				if err := a.client.DeleteFile(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			}
			return nil
		},
	}
}

func newPrintCmd(flags *globalFlags) *cobra.Command {
	var printerID string
	cmd := &cobra.Command{
		Use:   "print <id>",
		Short: "Send a file to a printer and mark it printed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			printers, err := printer.FromConfig(a.cfg)
			if err != nil {
				return err
			}
			defer printers.Close()

			files, err := a.client.ListFiles(ctx)
			if err != nil {
				return err
			}
			store := state.NewStore()
			store.ReplaceAll(files)
			f, ok := store.Find(args[0])
			if !ok {
				return fmt.Errorf("no file with id %s", args[0])
			}

			if err := dashboard.PrintFile(ctx, a.client, printers, printerID, f, a.cfg.UI.PrintDelay); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sent %s to printer\n", f.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&printerID, "printer", "P", "", "Printer id (default from config)")
	return cmd
}

func newMkdirCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			folder, err := a.client.CreateFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created folder %s (%s)\n", folder.Name, folder.ID)
			return nil
		},
	}
}

func newCleanCmd(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete every file already marked printed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			files, err := a.client.ListFiles(ctx)
			if err != nil {
				return err
			}
			store := state.NewStore()
			store.ReplaceAll(files)
			printed := store.Printed()
			if len(printed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no printed files")
				return nil
			}

			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete all %d printed files? [y/N] ", len(printed))
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if ans := strings.ToLower(strings.TrimSpace(answer)); ans != "y" && ans != "yes" {
					return nil
				}
			}

			start := time.Now()
			for _, f := range printed {
				if err := a.client.DeleteFile(ctx, f.ID); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d printed files in %s\n", len(printed), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
