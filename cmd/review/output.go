package main

import (
	"encoding/json"
	"io"

	"financial_review/pkg/core/pipeline"
	"financial_review/pkg/core/report"
	"financial_review/pkg/core/validate"
)

func printReview(w io.Writer, r *pipeline.Review) error {
	if outputFormat == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*pipeline.Review
			VerificationSummary validate.Summary `json:"verification_summary"`
		}{r, r.Verification.Summary()})
	}
	return report.Write(w, r.Session, r.Calculation, r.Verification)
}
