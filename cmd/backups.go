package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agentic-research/procmirror/internal/backup"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List data file backups, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := backup.NewOS(cfg.DataFile, cfg.BackupDir, log)
		if err != nil {
			return err
		}
		list, err := b.List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintf(out, "No backups in %s.\n", cfg.BackupDir)
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TAKEN\tSIZE\tNAME")
		for _, b := range list {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", b.Taken.Format("2006-01-02 15:04:05"), b.Size, b.Name)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(backupsCmd)
}
