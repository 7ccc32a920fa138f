package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/procmirror/internal/backup"
	"github.com/agentic-research/procmirror/internal/localtree"
	"github.com/agentic-research/procmirror/internal/manifest"
)

var noReset bool

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Rebuild the console from the mirror directory",
	Long: `Moves the console's data file into backup_dir, replaces it with the baseline
data file (an empty console) and imports every file of the mirror directory.
Triggers, schedules and logs held in the data file are lost; restore the
backup to get them back.

With --no-reset the data file is left alone and processes are imported on
top of what the console already has.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		m := newMirror(client)
		local, err := localtree.Open(cfg.MirrorDir)
		if err != nil {
			return err
		}

		switch {
		case fixturePath != "":
			log.Debug("fixture namespace, data file untouched")
		case noReset:
			log.Debug("reset skipped")
		default:
			b, err := backup.NewOS(cfg.DataFile, cfg.BackupDir, log)
			if err != nil {
				return err
			}
			path, err := b.Snapshot()
			if err != nil {
				return fmt.Errorf("backup: %w", err)
			}
			if err := b.ResetFrom(cfg.BaselineFile); err != nil {
				return fmt.Errorf("reset (backup kept at %s): %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up data file to %s.\n", path)
		}

		store, err := manifest.Open(cfg.Manifest)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		rec, err := store.Begin(manifest.KindImport, cfg.RemoteRoot, cfg.MirrorDir)
		if err != nil {
			return err
		}
		m.Observer = rec

		runErr := m.ImportAll(cmd.Context(), local)
		if err := rec.Finish(runErr); err != nil {
			log.WithError(err).Warn("manifest not updated")
		}
		if runErr != nil {
			return runErr
		}

		_, leaves := rec.Counts()
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d processes from %s.\n", leaves, cfg.MirrorDir)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&noReset, "no-reset", false, "keep the console's current processes")
	rootCmd.AddCommand(importCmd)
}
