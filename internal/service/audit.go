package service

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"strata-violations/internal/model"
	"strata-violations/internal/repository"
)

const entityViolation = "violation"

// auditTrail writes audit rows after the primary change has committed. A
// failed write is logged and never fails the caller.
type auditTrail struct {
	repo *repository.AuditRepository
	log  zerolog.Logger
}

func (a auditTrail) record(ctx context.Context, userID *int64, action string, violationID int64, details model.HistoryDetails) {
	entry := &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityViolation,
		EntityID:   strconv.FormatInt(violationID, 10),
		Details:    details,
	}
	if err := a.repo.Record(context.WithoutCancel(ctx), entry); err != nil {
		a.log.Error().
			Err(err).
			Str("action", action).
			Int64("violation_id", violationID).
			Msg("write audit log")
	}
}

type AuditService struct {
	repo *repository.AuditRepository
}

func NewAuditService(repo *repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

type AuditListOptions struct {
	EntityType string
	EntityID   string
	Action     string
	Limit      int
	Offset     int
}

func (s *AuditService) List(ctx context.Context, principal model.Principal, opts AuditListOptions) ([]model.AuditLog, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if opts.Limit <= 0 || opts.Limit > 500 {
		opts.Limit = 100
	}
	return s.repo.List(ctx, repository.AuditFilter{
		EntityType: opts.EntityType,
		EntityID:   opts.EntityID,
		Action:     opts.Action,
		Limit:      opts.Limit,
		Offset:     opts.Offset,
	})
}

func userRef(p model.Principal) *int64 {
	id := p.UserID
	return &id
}
