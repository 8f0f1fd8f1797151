package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ascendhq/ascend/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List past coaching sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		metas, err := st.Sessions()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderSessionTable(metas))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}
