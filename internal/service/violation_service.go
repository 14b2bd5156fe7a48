package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"strata-violations/internal/metrics"
	"strata-violations/internal/model"
	"strata-violations/internal/notification"
	"strata-violations/internal/repository"
	"strata-violations/internal/storage"
)

const violationDateLayout = "2006-01-02"

type ViolationServiceConfig struct {
	PublicBaseURL string
	AccessLinkTTL time.Duration
}

type ViolationService struct {
	violationRepo *repository.ViolationRepository
	unitRepo      *repository.UnitRepository
	categories    *CategoryCatalog
	store         *storage.Store
	audit         auditTrail
	metrics       *metrics.Metrics
	log           zerolog.Logger
	cfg           ViolationServiceConfig
	now           func() time.Time
}

func NewViolationService(
	violationRepo *repository.ViolationRepository,
	unitRepo *repository.UnitRepository,
	categories *CategoryCatalog,
	auditRepo *repository.AuditRepository,
	store *storage.Store,
	m *metrics.Metrics,
	log zerolog.Logger,
	cfg ViolationServiceConfig,
) *ViolationService {
	return &ViolationService{
		violationRepo: violationRepo,
		unitRepo:      unitRepo,
		categories:    categories,
		store:         store,
		audit:         auditTrail{repo: auditRepo, log: log},
		metrics:       m,
		log:           log,
		cfg:           cfg,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

type ListViolationsOptions struct {
	Statuses   []model.ViolationStatus
	UnitID     *int64
	CategoryID *int64
	DateFrom   *time.Time
	DateTo     *time.Time
	Search     string
	SortBy     string
	SortOrder  string
	Page       int
	Limit      int
}

type ViolationList struct {
	Violations []model.ViolationRecord `json:"violations"`
	Total      int64                   `json:"total"`
	Page       int                     `json:"page"`
	Limit      int                     `json:"limit"`
}

func (s *ViolationService) List(ctx context.Context, principal model.Principal, opts ListViolationsOptions) (*ViolationList, error) {
	if !principal.IsStaff() {
		return nil, ErrPermissionDenied
	}

	filter, err := buildFilter(opts)
	if err != nil {
		return nil, err
	}

	violations, total, err := s.violationRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ViolationList{
		Violations: toRecords(violations),
		Total:      total,
		Page:       filter.Offset/filter.Limit + 1,
		Limit:      filter.Limit,
	}, nil
}

func buildFilter(opts ListViolationsOptions) (repository.ViolationFilter, error) {
	for _, status := range opts.Statuses {
		if !status.Valid() {
			return repository.ViolationFilter{}, fieldError("status", fmt.Sprintf("unknown status %q", status))
		}
	}
	if opts.SortBy != "" && !repository.SortColumnAllowed(opts.SortBy) {
		return repository.ViolationFilter{}, fieldError("sortBy", fmt.Sprintf("cannot sort by %q", opts.SortBy))
	}

	desc := true
	switch strings.ToLower(opts.SortOrder) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		return repository.ViolationFilter{}, fieldError("sortOrder", "must be one of: asc desc")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}

	return repository.ViolationFilter{
		Statuses:   opts.Statuses,
		UnitID:     opts.UnitID,
		CategoryID: opts.CategoryID,
		DateFrom:   opts.DateFrom,
		DateTo:     opts.DateTo,
		Search:     strings.TrimSpace(opts.Search),
		SortBy:     opts.SortBy,
		SortDesc:   desc,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}, nil
}

func (s *ViolationService) Recent(ctx context.Context, principal model.Principal, limit int) ([]model.ViolationRecord, error) {
	if !principal.IsStaff() {
		return nil, ErrPermissionDenied
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	violations, err := s.violationRepo.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return toRecords(violations), nil
}

// PendingApproval returns the approval queue, oldest first.
func (s *ViolationService) PendingApproval(ctx context.Context, principal model.Principal) ([]model.ViolationRecord, error) {
	if !principal.CanAdjudicate() {
		return nil, ErrPermissionDenied
	}

	violations, _, err := s.violationRepo.List(ctx, repository.ViolationFilter{
		Statuses: []model.ViolationStatus{model.ViolationStatusPendingApproval},
		SortBy:   "createdAt",
		Limit:    200,
	})
	if err != nil {
		return nil, err
	}
	return toRecords(violations), nil
}

func (s *ViolationService) Get(ctx context.Context, principal model.Principal, idOrUUID string) (*model.ViolationRecord, error) {
	if !principal.IsStaff() {
		return nil, ErrPermissionDenied
	}

	violation, err := s.resolve(ctx, idOrUUID)
	if err != nil {
		return nil, err
	}
	record := model.NewViolationRecord(*violation)
	return &record, nil
}

type CreateViolationInput struct {
	UnitID           int64  `json:"unitId" form:"unitId" validate:"required,gt=0"`
	CategoryID       *int64 `json:"categoryId" form:"categoryId" validate:"omitempty,gt=0"`
	ViolationType    string `json:"violationType" form:"violationType" validate:"max=255"`
	ViolationDate    string `json:"violationDate" form:"violationDate" validate:"required,datetime=2006-01-02"`
	ViolationTime    string `json:"violationTime" form:"violationTime" validate:"omitempty,datetime=15:04"`
	Description      string `json:"description" form:"description" validate:"required,min=10,max=5000"`
	BylawReference   string `json:"bylawReference" form:"bylawReference" validate:"max=255"`
	IncidentArea     string `json:"incidentArea" form:"incidentArea" validate:"max=2000"`
	ConciergeName    string `json:"conciergeName" form:"conciergeName" validate:"max=255"`
	PeopleInvolved   string `json:"peopleInvolved" form:"peopleInvolved" validate:"max=2000"`
	NoticedBy        string `json:"noticedBy" form:"noticedBy" validate:"max=255"`
	DamageToProperty bool   `json:"damageToProperty" form:"damageToProperty"`
	DamageDetails    string `json:"damageDetails" form:"damageDetails" validate:"max=2000"`
	PoliceInvolved   bool   `json:"policeInvolved" form:"policeInvolved"`
	PoliceDetails    string `json:"policeDetails" form:"policeDetails" validate:"max=2000"`
}

func (s *ViolationService) Create(ctx context.Context, principal model.Principal, input CreateViolationInput, uploads []storage.Upload) (*model.ViolationRecord, error) {
	if !principal.IsStaff() {
		return nil, ErrPermissionDenied
	}

	input.Description = strings.TrimSpace(input.Description)
	input.ViolationType = strings.TrimSpace(input.ViolationType)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if input.CategoryID == nil && input.ViolationType == "" {
		return nil, fieldError("violationType", "is required when no category is selected")
	}
	violationDate, err := time.Parse(violationDateLayout, input.ViolationDate)
	if err != nil {
		return nil, fieldError("violationDate", "must match the format 2006-01-02")
	}

	unit, err := s.unitRepo.GetUnit(ctx, input.UnitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unit %d", ErrNotFound, input.UnitID)
		}
		return nil, err
	}

	violationType := input.ViolationType
	bylawReference := strings.TrimSpace(input.BylawReference)
	if input.CategoryID != nil {
		category, err := s.categories.Get(ctx, *input.CategoryID)
		if err != nil {
			return nil, err
		}
		if !category.Active {
			return nil, fieldError("categoryId", "category is not active")
		}
		violationType = category.Name
		if bylawReference == "" {
			bylawReference = category.BylawReference
		}
	}

	occupants, err := s.unitRepo.NotifiableOccupants(ctx, unit.ID)
	if err != nil {
		return nil, err
	}
	approvers, err := s.unitRepo.Approvers(ctx)
	if err != nil {
		return nil, err
	}

	attachments, err := s.store.SaveAll(ctx, uploads)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTooManyFiles):
			return nil, fieldError("attachments", err.Error())
		case errors.Is(err, storage.ErrRejected):
			s.metrics.AttachmentsRejected.Inc()
			s.log.Warn().Err(err).Int64("user_id", principal.UserID).Msg("attachment rejected")
			return nil, fmt.Errorf("%w: %s", ErrAttachmentRejected, strings.TrimPrefix(err.Error(), storage.ErrRejected.Error()+": "))
		default:
			return nil, err
		}
	}

	violation := &model.Violation{
		UUID:             uuid.New(),
		ReferenceNumber:  uuid.New(),
		UnitID:           unit.ID,
		ReportedByID:     principal.UserID,
		CategoryID:       input.CategoryID,
		ViolationType:    violationType,
		ViolationDate:    violationDate,
		ViolationTime:    input.ViolationTime,
		Description:      input.Description,
		BylawReference:   bylawReference,
		Status:           model.ViolationStatusPendingApproval,
		Attachments:      model.Attachments(attachments),
		IncidentArea:     strings.TrimSpace(input.IncidentArea),
		ConciergeName:    strings.TrimSpace(input.ConciergeName),
		PeopleInvolved:   strings.TrimSpace(input.PeopleInvolved),
		NoticedBy:        strings.TrimSpace(input.NoticedBy),
		DamageToProperty: input.DamageToProperty,
		DamageDetails:    strings.TrimSpace(input.DamageDetails),
		PoliceInvolved:   input.PoliceInvolved,
		PoliceDetails:    strings.TrimSpace(input.PoliceDetails),
	}
	if violation.Attachments == nil {
		violation.Attachments = model.Attachments{}
	}

	now := s.now()
	expiresAt := now.Add(s.cfg.AccessLinkTTL)
	links := make([]model.ViolationAccessLink, 0, len(occupants))
	jobs := make([]model.NotificationJob, 0, len(occupants)+len(approvers))
	for _, occupant := range occupants {
		if occupant.Person == nil || occupant.Person.Email == "" {
			continue
		}
		personID := occupant.PersonID
		token := uuid.New()
		links = append(links, model.ViolationAccessLink{
			PersonID:       &personID,
			RecipientEmail: occupant.Person.Email,
			Token:          token,
			ExpiresAt:      expiresAt,
		})

		payload := violationPayload(violation, unit.UnitNumber)
		payload["link"] = s.accessURL(token)
		payload["linkExpiresAt"] = expiresAt.Format(violationDateLayout)
		payload["recipientName"] = occupant.Person.FullName
		jobs = append(jobs, model.NotificationJob{
			Template:  model.TemplateViolationReported,
			Recipient: occupant.Person.Email,
			Payload:   payload,
		})
	}
	for _, approver := range approvers {
		jobs = append(jobs, model.NotificationJob{
			Template:  model.TemplateViolationPendingApproval,
			Recipient: approver.Email,
			Payload:   violationPayload(violation, unit.UnitNumber),
		})
	}

	entry := &model.ViolationHistory{
		UserID: userRef(principal),
		Action: model.HistoryActionCreated,
		Details: model.HistoryDetails{
			"status":      string(model.ViolationStatusPendingApproval),
			"attachments": len(attachments),
		},
	}

	if err := s.violationRepo.Create(ctx, violation, entry, links, jobs); err != nil {
		s.store.Remove(attachments...)
		return nil, err
	}

	s.metrics.ViolationsCreated.Inc()
	s.audit.record(ctx, userRef(principal), model.AuditActionViolationCreated, violation.ID, model.HistoryDetails{
		"uuid":            violation.UUID.String(),
		"referenceNumber": violation.ReferenceNumber.String(),
		"unitId":          violation.UnitID,
		"notified":        len(jobs),
	})

	return s.record(ctx, violation.ID)
}

type ChangeStatusInput struct {
	Status          model.ViolationStatus `json:"status" validate:"required"`
	Comment         string                `json:"comment" validate:"max=2000"`
	RejectionReason string                `json:"rejectionReason" validate:"max=2000"`
}

func (s *ViolationService) ChangeStatus(ctx context.Context, principal model.Principal, violationID int64, input ChangeStatusInput) (*model.ViolationRecord, error) {
	if !principal.CanAdjudicate() {
		return nil, ErrPermissionDenied
	}

	input.Comment = strings.TrimSpace(input.Comment)
	input.RejectionReason = strings.TrimSpace(input.RejectionReason)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if !input.Status.Valid() {
		return nil, fieldError("status", fmt.Sprintf("unknown status %q", input.Status))
	}
	if input.Status == model.ViolationStatusRejected && input.RejectionReason == "" {
		return nil, fieldError("rejectionReason", "is required when rejecting a violation")
	}

	violation, err := s.load(ctx, violationID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, transitionRequest{
		violation:       violation,
		to:              input.Status,
		actor:           userRef(principal),
		comment:         input.Comment,
		rejectionReason: input.RejectionReason,
	}); err != nil {
		return nil, err
	}

	return s.record(ctx, violation.ID)
}

type transitionRequest struct {
	violation       *model.Violation
	to              model.ViolationStatus
	actor           *int64
	comment         string
	rejectionReason string
	fine            *int64
	consumeLink     *uuid.UUID
	// extra details written on the status history row
	details model.HistoryDetails
}

// transition validates the edge and applies it with its history rows and
// notifications in one transaction.
func (s *ViolationService) transition(ctx context.Context, req transitionRequest) error {
	violation := req.violation
	from := violation.Status
	if !model.CanTransition(from, req.to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidStatus, from, req.to)
	}

	unitNumber := ""
	if violation.Unit != nil {
		unitNumber = violation.Unit.UnitNumber
	}

	var history []model.ViolationHistory
	if req.fine != nil {
		history = append(history, fineHistory(req.actor, *req.fine, violation.FineAmount))
	}

	details := model.HistoryDetails{
		"from": string(from),
		"to":   string(req.to),
	}
	for k, val := range req.details {
		details[k] = val
	}
	if req.comment != "" {
		details["comment"] = req.comment
	}
	entry := model.ViolationHistory{
		UserID:  req.actor,
		Action:  model.StatusChangedAction(req.to),
		Details: details,
	}
	if req.rejectionReason != "" {
		reason := req.rejectionReason
		entry.RejectionReason = &reason
	}
	history = append(history, entry)

	payload := violationPayload(violation, unitNumber)
	payload["status"] = string(req.to)
	if req.comment != "" {
		payload["comment"] = req.comment
	}
	if req.rejectionReason != "" {
		payload["rejectionReason"] = req.rejectionReason
	}
	fine := violation.FineAmount
	if req.fine != nil {
		fine = req.fine
	}
	if fine != nil {
		payload["fineAmount"] = notification.FormatCents(*fine)
	}
	for k, val := range req.details {
		if str, ok := val.(string); ok {
			payload[k] = str
		}
	}

	jobs, err := s.transitionJobs(ctx, violation.UnitID, req.to, payload)
	if err != nil {
		return err
	}

	err = s.violationRepo.ApplyStatusChange(ctx, repository.StatusChange{
		ViolationID: violation.ID,
		From:        from,
		To:          req.to,
		FineAmount:  req.fine,
		History:     history,
		Jobs:        jobs,
		ConsumeLink: req.consumeLink,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleStatus):
			return fmt.Errorf("%w: violation status changed, reload and retry", ErrConflict)
		case errors.Is(err, repository.ErrLinkConsumed):
			return ErrLinkUsed
		}
		return err
	}

	s.metrics.StatusTransitions.WithLabelValues(string(req.to)).Inc()
	auditDetails := model.HistoryDetails{"from": string(from), "to": string(req.to)}
	if req.comment != "" {
		auditDetails["comment"] = req.comment
	}
	if req.rejectionReason != "" {
		auditDetails["rejectionReason"] = req.rejectionReason
	}
	if req.fine != nil {
		auditDetails["fineAmount"] = *req.fine
		s.audit.record(ctx, req.actor, model.AuditActionViolationFineSet, violation.ID, model.HistoryDetails{"amount": *req.fine})
	}
	s.audit.record(ctx, req.actor, model.AuditActionForStatus(req.to), violation.ID, auditDetails)
	return nil
}

// transitionJobs decides who hears about a transition. Occupants learn the
// outcome; approvers learn about disputes.
func (s *ViolationService) transitionJobs(ctx context.Context, unitID int64, to model.ViolationStatus, payload map[string]string) ([]model.NotificationJob, error) {
	var template model.NotificationTemplate
	switch to {
	case model.ViolationStatusApproved:
		template = model.TemplateViolationApproved
	case model.ViolationStatusRejected:
		template = model.TemplateViolationRejected
	case model.ViolationStatusDisputed:
		approvers, err := s.unitRepo.Approvers(ctx)
		if err != nil {
			return nil, err
		}
		jobs := make([]model.NotificationJob, 0, len(approvers))
		for _, approver := range approvers {
			jobs = append(jobs, model.NotificationJob{
				Template:  model.TemplateViolationDisputed,
				Recipient: approver.Email,
				Payload:   clonePayload(payload),
			})
		}
		return jobs, nil
	default:
		return nil, nil
	}

	occupants, err := s.unitRepo.NotifiableOccupants(ctx, unitID)
	if err != nil {
		return nil, err
	}
	jobs := make([]model.NotificationJob, 0, len(occupants))
	for _, occupant := range occupants {
		if occupant.Person == nil || occupant.Person.Email == "" {
			continue
		}
		jobs = append(jobs, model.NotificationJob{
			Template:  template,
			Recipient: occupant.Person.Email,
			Payload:   clonePayload(payload),
		})
	}
	return jobs, nil
}

type SetFineInput struct {
	Amount *int64 `json:"amount" validate:"required,gte=0"`
}

// SetFine records a fine without touching the violation's status.
func (s *ViolationService) SetFine(ctx context.Context, principal model.Principal, violationID int64, input SetFineInput) (*model.ViolationRecord, error) {
	if !principal.CanAdjudicate() {
		return nil, ErrPermissionDenied
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	violation, err := s.load(ctx, violationID)
	if err != nil {
		return nil, err
	}

	entry := fineHistory(userRef(principal), *input.Amount, violation.FineAmount)
	if err := s.violationRepo.SetFine(ctx, violation.ID, *input.Amount, &entry); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.audit.record(ctx, userRef(principal), model.AuditActionViolationFineSet, violation.ID, entry.Details)
	return s.record(ctx, violation.ID)
}

type ApproveInput struct {
	Amount  *int64 `json:"amount" validate:"omitempty,gte=0"`
	Comment string `json:"comment" validate:"max=2000"`
}

// Approve moves a violation to approved, writing the fine in the same
// transaction when one is given.
func (s *ViolationService) Approve(ctx context.Context, principal model.Principal, violationID int64, input ApproveInput) (*model.ViolationRecord, error) {
	if !principal.CanAdjudicate() {
		return nil, ErrPermissionDenied
	}
	input.Comment = strings.TrimSpace(input.Comment)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	violation, err := s.load(ctx, violationID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, transitionRequest{
		violation: violation,
		to:        model.ViolationStatusApproved,
		actor:     userRef(principal),
		comment:   input.Comment,
		fine:      input.Amount,
	}); err != nil {
		return nil, err
	}

	return s.record(ctx, violation.ID)
}

type CommentInput struct {
	Comment string `json:"comment" validate:"required,max=2000"`
}

func (s *ViolationService) AddComment(ctx context.Context, principal model.Principal, violationID int64, input CommentInput) (*model.ViolationHistory, error) {
	if !principal.IsStaff() {
		return nil, ErrPermissionDenied
	}
	input.Comment = strings.TrimSpace(input.Comment)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	violation, err := s.load(ctx, violationID)
	if err != nil {
		return nil, err
	}

	entry := &model.ViolationHistory{
		ViolationID: violation.ID,
		UserID:      userRef(principal),
		Action:      model.HistoryActionComment,
		Details:     model.HistoryDetails{"comment": input.Comment},
	}
	if err := s.violationRepo.AddHistory(ctx, entry); err != nil {
		return nil, err
	}

	s.audit.record(ctx, userRef(principal), model.AuditActionViolationCommented, violation.ID, entry.Details)
	return entry, nil
}

func (s *ViolationService) History(ctx context.Context, principal model.Principal, idOrUUID string) ([]model.ViolationHistory, error) {
	if !principal.IsStaff() {
		return nil, ErrPermissionDenied
	}

	violation, err := s.resolve(ctx, idOrUUID)
	if err != nil {
		return nil, err
	}
	return s.violationRepo.History(ctx, violation.ID)
}

// Delete hard-deletes a violation with its history, links and codes. Any
// staff principal may delete.
func (s *ViolationService) Delete(ctx context.Context, principal model.Principal, idOrUUID string) error {
	if !principal.IsStaff() {
		return ErrPermissionDenied
	}

	violation, err := s.resolve(ctx, idOrUUID)
	if err != nil {
		return err
	}

	if err := s.violationRepo.Delete(ctx, violation.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.store.Remove(violation.Attachments...)

	s.audit.record(ctx, userRef(principal), model.AuditActionViolationDeleted, violation.ID, model.HistoryDetails{
		"uuid":            violation.UUID.String(),
		"referenceNumber": violation.ReferenceNumber.String(),
		"status":          string(violation.Status),
	})
	return nil
}

// Attachment opens a stored attachment for download.
func (s *ViolationService) Attachment(principal model.Principal, name string) (storage.File, string, error) {
	if !principal.IsStaff() {
		return nil, "", ErrPermissionDenied
	}
	file, contentType, err := s.store.Open(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return file, contentType, nil
}

func (s *ViolationService) resolve(ctx context.Context, idOrUUID string) (*model.Violation, error) {
	idOrUUID = strings.TrimSpace(idOrUUID)
	if id, err := strconv.ParseInt(idOrUUID, 10, 64); err == nil {
		return s.load(ctx, id)
	}
	parsed, err := uuid.Parse(idOrUUID)
	if err != nil {
		return nil, ErrNotFound
	}
	violation, err := s.violationRepo.GetByUUID(ctx, parsed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return violation, nil
}

func (s *ViolationService) load(ctx context.Context, id int64) (*model.Violation, error) {
	violation, err := s.violationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return violation, nil
}

func (s *ViolationService) record(ctx context.Context, id int64) (*model.ViolationRecord, error) {
	violation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	record := model.NewViolationRecord(*violation)
	return &record, nil
}

func (s *ViolationService) accessURL(token uuid.UUID) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/violation/" + token.String()
}

func fineHistory(actor *int64, amount int64, previous *int64) model.ViolationHistory {
	details := model.HistoryDetails{"amount": amount}
	if previous != nil {
		details["previousAmount"] = *previous
	}
	return model.ViolationHistory{
		UserID:  actor,
		Action:  model.HistoryActionFineSet,
		Details: details,
	}
}

func violationPayload(v *model.Violation, unitNumber string) map[string]string {
	return map[string]string{
		"referenceNumber": v.ReferenceNumber.String(),
		"unitNumber":      unitNumber,
		"violationType":   v.ViolationType,
		"violationDate":   v.ViolationDate.Format(violationDateLayout),
		"violationTime":   v.ViolationTime,
		"description":     v.Description,
		"status":          string(v.Status),
	}
}

func clonePayload(payload map[string]string) map[string]string {
	out := make(map[string]string, len(payload))
	for k, val := range payload {
		out[k] = val
	}
	return out
}

func toRecords(violations []model.Violation) []model.ViolationRecord {
	records := make([]model.ViolationRecord, 0, len(violations))
	for _, v := range violations {
		records = append(records, model.NewViolationRecord(v))
	}
	return records
}
