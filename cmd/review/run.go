package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"financial_review/pkg/core/pipeline"
)

var (
	runSource    sourceFlags
	runEditsPath string
)

var runCmd = &cobra.Command{
	Use:   "run <input>",
	Short: "Extract, approve and summarize one input in a single pass",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Close() //nolint:errcheck

		edits, err := loadEdits(runEditsPath)
		if err != nil {
			return err
		}
		review, err := runOne(ctx, e.Service, &runSource, args[0], edits)
		if review != nil {
			if pErr := printReview(cmd.OutOrStdout(), review); pErr != nil {
				return pErr
			}
		}
		return err
	},
}

var extractSource sourceFlags

var extractCmd = &cobra.Command{
	Use:   "extract <input>",
	Short: "Build and store a review session without approving it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Close() //nolint:errcheck

		src, err := extractSource.open(args[0], cfg.Review.PDFUnit)
		if err != nil {
			return err
		}
		s, err := e.Service.Extract(ctx, src)
		if err != nil {
			return err
		}
		warnEphemeral(cfg.Store)
		fmt.Fprintln(cmd.OutOrStdout(), s.ID)
		return nil
	},
}

func init() {
	runSource.register(runCmd)
	runCmd.Flags().StringVar(&runEditsPath, "edits", "", "yaml or json file of edits to apply before approval")
	extractSource.register(extractCmd)
	rootCmd.AddCommand(runCmd, extractCmd)
}

// runOne extracts input and approves the resulting session. A blocked
// approval still returns the review so the failing checks can be shown.
func runOne(ctx context.Context, svc *pipeline.Service, src *sourceFlags, input string, edits []pipeline.Edit) (*pipeline.Review, error) {
	source, err := src.open(input, cfg.Review.PDFUnit)
	if err != nil {
		return nil, err
	}
	s, err := svc.Extract(ctx, source)
	if err != nil {
		return nil, err
	}
	review, err := svc.Approve(ctx, s.ID, edits)
	if err != nil {
		return review, eris.Wrapf(err, "approve %s", input)
	}
	return review, nil
}
