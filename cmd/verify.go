package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agentic-research/procmirror/internal/localtree"
	"github.com/agentic-research/procmirror/internal/manifest"
)

var errDrift = errors.New("mirror differs from the last export")

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Compare the mirror directory with the last successful export",
	Long: `Lists folders and files that the last successful export created but are
missing from the mirror directory, and entries present that it did not
create. Exits non-zero when anything differs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := manifest.Open(cfg.Manifest)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		run, err := store.LatestRun(manifest.KindExport)
		if err != nil {
			return err
		}
		if filepath.Clean(run.MirrorDir) != filepath.Clean(cfg.MirrorDir) {
			log.WithFields(logrus.Fields{"export": run.MirrorDir, "mirror_dir": cfg.MirrorDir}).
				Warn("last export wrote to a different directory")
		}
		entries, err := store.Entries(run.ID)
		if err != nil {
			return err
		}

		local, err := localtree.Open(cfg.MirrorDir)
		if err != nil {
			return err
		}
		report, err := manifest.Diff(entries, local, cfg.Ignore)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if report.Clean() {
			fmt.Fprintf(out, "%s matches export %s (%d folders, %d processes).\n",
				cfg.MirrorDir, run.ID, run.Folders, run.Leaves)
			return nil
		}
		printSection(out, "missing folder", report.MissingFolders)
		printSection(out, "missing file", report.MissingFiles)
		printSection(out, "extra folder", report.ExtraFolders)
		printSection(out, "extra file", report.ExtraFiles)
		return errDrift
	},
}

func printSection(w io.Writer, label string, paths []string) {
	for _, p := range paths {
		fmt.Fprintf(w, "%s: %s\n", label, p)
	}
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
