package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ascendhq/ascend/internal/assembler"
	"github.com/ascendhq/ascend/internal/store"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the current plan snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		goals, err := st.RefreshGoals(ctx)
		if err != nil {
			return err
		}
		events, err := st.RefreshEvents(ctx)
		if err != nil {
			return err
		}

		view := assembler.New(cfg.Assembler).Assemble(st.Profile(), goals, st.Constraints(), events, "all goals")
		fmt.Fprintln(cmd.OutOrStdout(), view.Render())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}
