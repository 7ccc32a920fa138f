package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/procmirror/internal/localtree"
	"github.com/agentic-research/procmirror/internal/manifest"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Replace the mirror directory with the console's folders and processes",
	Long: `Clears the mirror directory, recreates the folder tree below remote_root and
exports every process into it as "<name><extension>". The run is recorded in
the manifest for verify.`,
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

		store, err := manifest.Open(cfg.Manifest)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		rec, err := store.Begin(manifest.KindExport, cfg.RemoteRoot, cfg.MirrorDir)
		if err != nil {
			return err
		}
		m.Observer = rec

		start := time.Now()
		runErr := m.ExportAll(cmd.Context(), cfg.RemoteRoot, local)
		if err := rec.Finish(runErr); err != nil {
			log.WithError(err).Warn("manifest not updated")
		}
		if runErr != nil {
			return runErr
		}

		folders, leaves := rec.Counts()
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d folders and %d processes to %s in %v.\n",
			folders, leaves, cfg.MirrorDir, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
