package main

import (
	"github.com/spf13/cobra"
)

var approveEditsPath string

var approveCmd = &cobra.Command{
	Use:   "approve <session-id>",
	Short: "Apply edits, recalculate, verify and approve a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		warnEphemeral(cfg.Store)
		e, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Close() //nolint:errcheck

		edits, err := loadEdits(approveEditsPath)
		if err != nil {
			return err
		}
		review, err := e.Service.Approve(ctx, args[0], edits)
		if review != nil {
			if pErr := printReview(cmd.OutOrStdout(), review); pErr != nil {
				return pErr
			}
		}
		return err
	},
}

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Calculate and verify a stored session without changing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		warnEphemeral(cfg.Store)
		e, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Close() //nolint:errcheck

		review, err := e.Service.Preview(ctx, args[0])
		if err != nil {
			return err
		}
		return printReview(cmd.OutOrStdout(), review)
	},
}

func init() {
	approveCmd.Flags().StringVar(&approveEditsPath, "edits", "", "yaml or json file of edits to apply before approval")
	rootCmd.AddCommand(approveCmd, showCmd)
}
