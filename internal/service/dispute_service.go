package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"strata-violations/internal/auth"
	"strata-violations/internal/metrics"
	"strata-violations/internal/model"
	"strata-violations/internal/notification"
	"strata-violations/internal/repository"
)

const codeDigits = 6

type DisputeServiceConfig struct {
	CodeTTL time.Duration
}

// DisputeService runs the public flow: an occupant opens an access link,
// proves control of their email with a one-time code and submits a dispute.
type DisputeService struct {
	violations *ViolationService
	linkRepo   *repository.AccessLinkRepository
	unitRepo   *repository.UnitRepository
	issuer     *auth.Issuer
	mailer     notification.Mailer
	renderer   *notification.Renderer
	audit      auditTrail
	metrics    *metrics.Metrics
	log        zerolog.Logger
	cfg        DisputeServiceConfig
	now        func() time.Time
}

func NewDisputeService(
	violations *ViolationService,
	linkRepo *repository.AccessLinkRepository,
	unitRepo *repository.UnitRepository,
	auditRepo *repository.AuditRepository,
	issuer *auth.Issuer,
	mailer notification.Mailer,
	renderer *notification.Renderer,
	m *metrics.Metrics,
	log zerolog.Logger,
	cfg DisputeServiceConfig,
) *DisputeService {
	return &DisputeService{
		violations: violations,
		linkRepo:   linkRepo,
		unitRepo:   unitRepo,
		issuer:     issuer,
		mailer:     mailer,
		renderer:   renderer,
		audit:      auditTrail{repo: auditRepo, log: log},
		metrics:    m,
		log:        log.With().Str("component", "dispute").Logger(),
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type LinkStatusResult struct {
	Status    model.AccessLinkStatus `json:"status"`
	Violation *model.PublicViolation `json:"violation"`
}

// LinkStatus never fails on bad tokens; they resolve to the invalid status.
func (s *DisputeService) LinkStatus(ctx context.Context, token string) (*LinkStatusResult, error) {
	link, err := s.findLink(ctx, token)
	if err != nil {
		if errors.Is(err, ErrLinkInvalid) {
			return &LinkStatusResult{Status: model.AccessLinkInvalid}, nil
		}
		return nil, err
	}

	status := link.StatusAt(s.now())
	if status != model.AccessLinkValid {
		return &LinkStatusResult{Status: status}, nil
	}

	violation, err := s.violations.load(ctx, link.ViolationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &LinkStatusResult{Status: model.AccessLinkInvalid}, nil
		}
		return nil, err
	}

	view, err := s.publicView(ctx, violation)
	if err != nil {
		return nil, err
	}
	return &LinkStatusResult{Status: status, Violation: view}, nil
}

type SendCodeResult struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SendCode issues a fresh code and emails it before returning. If delivery
// fails the code is discarded and ErrDeliveryFailed is returned.
func (s *DisputeService) SendCode(ctx context.Context, token string, personID int64) (*SendCodeResult, error) {
	link, violation, err := s.validLink(ctx, token)
	if err != nil {
		return nil, err
	}

	occupant, err := s.occupant(ctx, violation.UnitID, personID)
	if err != nil {
		return nil, err
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash verification code: %w", err)
	}

	now := s.now()
	record := &model.EmailVerificationCode{
		PersonID:    personID,
		ViolationID: violation.ID,
		CodeHash:    string(hash),
		ExpiresAt:   now.Add(s.cfg.CodeTTL),
	}
	if err := s.linkRepo.CreateCode(ctx, record); err != nil {
		return nil, err
	}

	msg, err := s.renderer.Render(model.TemplateVerificationCode, map[string]string{
		"code":             code,
		"expiresInMinutes": strconv.Itoa(int(s.cfg.CodeTTL.Minutes())),
	})
	if err == nil {
		err = s.mailer.Send(ctx, occupant.Person.Email, msg)
	}
	if err != nil {
		if delErr := s.linkRepo.DeleteCode(context.WithoutCancel(ctx), record.ID); delErr != nil {
			s.log.Error().Err(delErr).Int64("code_id", record.ID).Msg("discard undelivered verification code")
		}
		s.metrics.VerificationCodes.WithLabelValues("delivery_failed").Inc()
		s.log.Warn().
			Err(err).
			Int64("violation_id", violation.ID).
			Int64("person_id", personID).
			Msg("verification code delivery failed")
		return nil, ErrDeliveryFailed
	}

	s.metrics.VerificationCodes.WithLabelValues("issued").Inc()
	s.audit.record(ctx, nil, model.AuditActionVerificationCodeSent, violation.ID, model.HistoryDetails{
		"personId": personID,
		"linkId":   link.ID,
	})

	return &SendCodeResult{
		Email:     ObfuscateEmail(occupant.Person.Email),
		ExpiresAt: record.ExpiresAt,
	}, nil
}

type VerifyCodeResult struct {
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ViolationID  int64     `json:"violationId"`
}

// VerifyCode checks the code against every usable code for the pair. A wrong
// code leaves all codes intact so the caller can retry.
func (s *DisputeService) VerifyCode(ctx context.Context, token string, personID int64, code string) (*VerifyCodeResult, error) {
	link, violation, err := s.validLink(ctx, token)
	if err != nil {
		return nil, err
	}
	if _, err := s.occupant(ctx, violation.UnitID, personID); err != nil {
		return nil, err
	}

	code = strings.TrimSpace(code)
	if !wellFormedCode(code) {
		s.metrics.VerificationCodes.WithLabelValues("rejected").Inc()
		return nil, ErrCodeInvalid
	}

	codes, err := s.linkRepo.UsableCodes(ctx, personID, violation.ID, s.now())
	if err != nil {
		return nil, err
	}

	var matched *model.EmailVerificationCode
	for i := range codes {
		if bcrypt.CompareHashAndPassword([]byte(codes[i].CodeHash), []byte(code)) == nil {
			matched = &codes[i]
			break
		}
	}
	if matched == nil {
		s.metrics.VerificationCodes.WithLabelValues("rejected").Inc()
		return nil, ErrCodeInvalid
	}

	consumed, err := s.linkRepo.MarkCodeUsed(ctx, matched.ID, s.now())
	if err != nil {
		return nil, err
	}
	if !consumed {
		s.metrics.VerificationCodes.WithLabelValues("rejected").Inc()
		return nil, ErrCodeInvalid
	}

	sessionToken, expiresAt, err := s.issuer.IssueOccupant(model.OccupantSession{
		PersonID:    personID,
		ViolationID: violation.ID,
		LinkToken:   link.Token.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("issue occupant session: %w", err)
	}

	s.metrics.VerificationCodes.WithLabelValues("verified").Inc()
	s.audit.record(ctx, nil, model.AuditActionVerificationSucceeded, violation.ID, model.HistoryDetails{
		"personId": personID,
		"linkId":   link.ID,
	})

	return &VerifyCodeResult{
		SessionToken: sessionToken,
		ExpiresAt:    expiresAt,
		ViolationID:  violation.ID,
	}, nil
}

type DisputeInput struct {
	Comment string `json:"comment" validate:"required,max=2000"`
}

// SubmitDispute moves the session's violation to disputed and consumes the
// access link the session was opened from, in one transaction.
func (s *DisputeService) SubmitDispute(ctx context.Context, session model.OccupantSession, idOrUUID string, input DisputeInput) (*model.PublicViolation, error) {
	input.Comment = strings.TrimSpace(input.Comment)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	violation, err := s.violations.resolve(ctx, idOrUUID)
	if err != nil {
		return nil, err
	}
	if violation.ID != session.ViolationID {
		return nil, ErrPermissionDenied
	}

	link, err := s.findLink(ctx, session.LinkToken)
	if err != nil {
		return nil, err
	}
	if link.ViolationID != violation.ID {
		return nil, ErrPermissionDenied
	}
	if err := linkError(link.StatusAt(s.now())); err != nil {
		return nil, err
	}

	occupant, err := s.occupant(ctx, violation.UnitID, session.PersonID)
	if err != nil {
		return nil, err
	}

	err = s.violations.transition(ctx, transitionRequest{
		violation:   violation,
		to:          model.ViolationStatusDisputed,
		comment:     input.Comment,
		consumeLink: &link.Token,
		details: model.HistoryDetails{
			"personId":   session.PersonID,
			"disputedBy": occupant.Person.FullName,
			"role":       string(occupant.Role),
		},
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.violations.load(ctx, violation.ID)
	if err != nil {
		return nil, err
	}
	return s.publicView(ctx, updated)
}

func (s *DisputeService) findLink(ctx context.Context, token string) (*model.ViolationAccessLink, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil, ErrLinkInvalid
	}
	link, err := s.linkRepo.GetByToken(ctx, parsed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkInvalid
		}
		return nil, err
	}
	return link, nil
}

func (s *DisputeService) validLink(ctx context.Context, token string) (*model.ViolationAccessLink, *model.Violation, error) {
	link, err := s.findLink(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if err := linkError(link.StatusAt(s.now())); err != nil {
		return nil, nil, err
	}

	violation, err := s.violations.load(ctx, link.ViolationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrLinkInvalid
		}
		return nil, nil, err
	}
	return link, violation, nil
}

func (s *DisputeService) occupant(ctx context.Context, unitID, personID int64) (*model.UnitPersonRole, error) {
	occupant, err := s.unitRepo.NotifiableOccupant(ctx, unitID, personID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: person %d", ErrNotFound, personID)
		}
		return nil, err
	}
	if occupant.Person == nil {
		return nil, fmt.Errorf("%w: person %d", ErrNotFound, personID)
	}
	return occupant, nil
}

func (s *DisputeService) publicView(ctx context.Context, v *model.Violation) (*model.PublicViolation, error) {
	occupants, err := s.unitRepo.NotifiableOccupants(ctx, v.UnitID)
	if err != nil {
		return nil, err
	}

	persons := make([]model.NotifiablePerson, 0, len(occupants))
	for _, occupant := range occupants {
		if occupant.Person == nil {
			continue
		}
		persons = append(persons, model.NotifiablePerson{
			PersonID: occupant.PersonID,
			Name:     occupant.Person.FullName,
			Email:    ObfuscateEmail(occupant.Person.Email),
			Role:     occupant.Role,
		})
	}

	view := &model.PublicViolation{
		UUID:            v.UUID,
		ReferenceNumber: v.ReferenceNumber,
		ViolationType:   v.ViolationType,
		ViolationDate:   v.ViolationDate,
		ViolationTime:   v.ViolationTime,
		Description:     v.Description,
		BylawReference:  v.BylawReference,
		Status:          v.Status,
		FineAmount:      v.FineAmount,
		Persons:         persons,
	}
	if v.Unit != nil {
		view.UnitNumber = v.Unit.UnitNumber
	}
	return view, nil
}

func linkError(status model.AccessLinkStatus) error {
	switch status {
	case model.AccessLinkValid:
		return nil
	case model.AccessLinkExpired:
		return ErrLinkExpired
	case model.AccessLinkUsed:
		return ErrLinkUsed
	default:
		return ErrLinkInvalid
	}
}

// ObfuscateEmail keeps the first and last character of the local part.
func ObfuscateEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	local, domain := []rune(email[:at]), email[at:]
	switch len(local) {
	case 1:
		return string(local) + "***" + domain
	case 2:
		return string(local[0]) + "***" + domain
	default:
		return string(local[0]) + strings.Repeat("*", len(local)-2) + string(local[len(local)-1]) + domain
	}
}

func generateCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func wellFormedCode(code string) bool {
	if len(code) != codeDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
