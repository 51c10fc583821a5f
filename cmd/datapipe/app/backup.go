package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivanehh/datapipe/pkg/backup"
)

func newBackupCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "backup PATH",
		Short: "Copy a file into the archive directory next to it",
		Long: `Copy PATH to <dir>/archive/<stem>_<YYYYMMDDHHMMSS><suffix>.

A missing file is skipped unless --strict is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst, err := backup.New().Create(args[0], strict)
			if err != nil {
				return err
			}
			if dst == "" {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s does not exist, nothing to back up\n", args[0])
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), dst)
			return err
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when the file does not exist")
	return cmd
}
