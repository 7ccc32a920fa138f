package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/procmirror/internal/backup"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <backup>",
	Short: "Replace the data file with a backup",
	Long: `Replaces the console's data file with a copy of the given backup. The backup
may be a path or a name from "procmirror backups".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := backup.NewOS(cfg.DataFile, cfg.BackupDir, log)
		if err != nil {
			return err
		}
		if err := b.Restore(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s.\n", cfg.DataFile, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
