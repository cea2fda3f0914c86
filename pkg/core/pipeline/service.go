// Package pipeline runs the review workflow over a session repository:
// extraction into a stored session, reviewer edits, and approval with
// calculation and verification.
package pipeline

import (
	"context"
	"time"

	"financial_review/pkg/core/calc"
	"financial_review/pkg/core/extract"
	"financial_review/pkg/core/metric"
	"financial_review/pkg/core/session"
	"financial_review/pkg/core/store"
	"financial_review/pkg/core/validate"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrApprovalBlocked is returned when error-severity checks fail while
// blocking is enabled.
var ErrApprovalBlocked = eris.New("approval blocked by failed verification checks")

// Config controls approval behavior.
type Config struct {
	BlockOnErrors bool // refuse approval when an error-severity check fails
	MaxRetries    int  // compare-and-swap attempts per write (default 5)
}

// Edit overwrites one value before approval.
type Edit struct {
	Key   metric.Key   `json:"metric_key" yaml:"metric_key"`
	Year  session.Year `json:"year" yaml:"year"`
	Value float64      `json:"value" yaml:"value"`
}

// Review is everything a renderer needs for one session.
type Review struct {
	Session      *session.Session `json:"session"`
	Calculation  calc.Result      `json:"calculation"`
	Verification validate.Result  `json:"verification"`
}

// Service manages the session lifecycle.
type Service struct {
	repo store.Repository
	cfg  Config
	now  func() time.Time
}

// NewService creates a service over repo.
func NewService(repo store.Repository, cfg Config) *Service {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

// SetClock replaces the approval timestamp source (e.g., for testing).
func (p *Service) SetClock(now func() time.Time) {
	p.now = now
}

// =============================================================================
// EXTRACTION
// =============================================================================

// Extract normalizes src, builds a session, rescales it to dollars and
// stores it.
func (p *Service) Extract(ctx context.Context, src extract.Source) (*session.Session, error) {
	log := zap.L().With(zap.String("source", src.Name()))

	data, err := src.Normalize(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: extract from %s", src.Name())
	}

	built := session.Build(data)
	s := session.NormalizeUnits(built)
	log.Info("session built",
		zap.String("session_id", s.ID),
		zap.String("ticker", s.Ticker),
		zap.Int("raw_values", len(s.RawValues)),
		zap.Int("not_found", len(s.NotFound)),
		zap.String("unit", string(built.Unit)),
	)

	version, err := p.repo.Put(ctx, s)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: store session %s", s.ID)
	}
	log.Debug("session stored", zap.String("session_id", s.ID), zap.Int64("version", version))
	return s, nil
}

// Get returns the stored session.
func (p *Service) Get(ctx context.Context, id string) (*session.Session, error) {
	s, _, err := p.repo.Get(ctx, id)
	return s, err
}

// =============================================================================
// REVIEW
// =============================================================================

// Edit applies reviewer overwrites atomically. Values are in the session's
// unit, which is dollars once extraction has stored it.
func (p *Service) Edit(ctx context.Context, id string, edits []Edit) (*session.Session, error) {
	s, err := store.Update(ctx, p.repo, id, p.cfg.MaxRetries, func(s *session.Session) error {
		return applyEdits(s, edits)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("session edited", zap.String("session_id", id), zap.Int("edits", len(edits)))
	return s, nil
}

// Preview calculates and verifies the stored session without writing it.
func (p *Service) Preview(ctx context.Context, id string) (*Review, error) {
	s, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	n := session.NormalizeUnits(s)
	return &Review{Session: n, Calculation: calc.Run(n), Verification: validate.Run(n)}, nil
}

// Verify runs the consistency checks on the stored session.
func (p *Service) Verify(ctx context.Context, id string) (validate.Result, error) {
	s, err := p.Get(ctx, id)
	if err != nil {
		return validate.Result{}, err
	}
	return validate.Run(session.NormalizeUnits(s)), nil
}

// Approve applies edits, normalizes units if still needed, recalculates,
// verifies and marks the session approved. When blocking is enabled and an
// error-severity check fails, nothing is written and the returned review
// carries the failing checks alongside ErrApprovalBlocked.
func (p *Service) Approve(ctx context.Context, id string, edits []Edit) (*Review, error) {
	var review *Review

	_, err := store.Update(ctx, p.repo, id, p.cfg.MaxRetries, func(s *session.Session) error {
		if err := applyEdits(s, edits); err != nil {
			return err
		}
		n := session.NormalizeUnits(s)
		result := calc.Run(n)
		verification := validate.Run(n)
		review = &Review{Session: n, Calculation: result, Verification: verification}

		if p.cfg.BlockOnErrors && verification.Blocking() {
			return eris.Wrapf(ErrApprovalBlocked, "session %s: %d error check(s) failed", id, verification.ErrorCount())
		}

		n.SetCalculationSteps(result.Steps)
		n.Approve(p.now())
		*s = *n
		return nil
	})
	if err != nil {
		if eris.Is(err, ErrApprovalBlocked) {
			zap.L().Warn("approval blocked",
				zap.String("session_id", id),
				zap.Int("errors", review.Verification.ErrorCount()),
			)
			return review, err
		}
		return nil, err
	}

	zap.L().Info("session approved",
		zap.String("session_id", id),
		zap.Int("steps", len(review.Calculation.Steps)),
		zap.Int("passed", review.Verification.PassCount()),
		zap.Int("failed", review.Verification.FailCount()),
		zap.Int("skipped", review.Verification.SkipCount()),
	)
	return review, nil
}

func applyEdits(s *session.Session, edits []Edit) error {
	for _, e := range edits {
		if err := s.Set(e.Key, e.Year, e.Value); err != nil {
			return eris.Wrapf(err, "edit %s/%s", e.Key, e.Year)
		}
	}
	return nil
}
