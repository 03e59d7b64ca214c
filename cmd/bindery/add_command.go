package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bindery/internal/book"
	"bindery/internal/fileutil"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Add media files to the book via the inbox",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Paths.InboxDir, 0o755); err != nil {
				return fmt.Errorf("create inbox directory: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, arg := range args {
				absPath, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve path: %w", err)
				}
				info, err := os.Stat(absPath)
				if err != nil {
					if errors.Is(err, os.ErrNotExist) {
						return fmt.Errorf("file does not exist: %s", absPath)
					}
					return fmt.Errorf("inspect file: %w", err)
				}
				if info.IsDir() {
					return fmt.Errorf("%s is a directory", absPath)
				}
				if _, ok := book.KindForPath(absPath); !ok {
					return fmt.Errorf("unsupported file type %q", filepath.Ext(absPath))
				}

				target := filepath.Join(cfg.Paths.InboxDir, filepath.Base(absPath))
				if err := fileutil.CopyFileVerified(absPath, target); err != nil {
					return fmt.Errorf("copy %s into inbox: %w", absPath, err)
				}
				fmt.Fprintf(out, "Dropped %q into the inbox (%s)\n", displayTitleFromFilename(absPath), formatSize(info.Size()))
			}
			fmt.Fprintln(out, "The daemon will ingest the files shortly")
			return nil
		},
	}
}
