package service

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata-violations/internal/model"
	"strata-violations/internal/storage"
)

var (
	pngSample = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 32)...)
	pdfSample = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")
)

func uploadedFiles(t *testing.T, fs afero.Fs) []string {
	t.Helper()
	entries, err := afero.ReadDir(fs, "/uploads")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestViolationService_CreateNotifiesOccupantsAndApprovers(t *testing.T) {
	env := newTestEnv(t)
	f := env.fixture

	record := env.createViolation(t, storage.Upload{
		Filename:    "balcony.png",
		ContentType: "image/png",
		Body:        bytes.NewReader(pngSample),
	})

	assert.Equal(t, model.ViolationStatusPendingApproval, record.Status)
	assert.Equal(t, "Noise", record.ViolationType)
	assert.Equal(t, "Bylaw 4.2", record.BylawReference)
	assert.Equal(t, "1204", record.UnitNumber)
	assert.Equal(t, &f.DefaultFee, record.SuggestedFineAmount)
	assert.Nil(t, record.FineAmount)
	assert.ElementsMatch(t, []model.ViolationStatus{
		model.ViolationStatusApproved,
		model.ViolationStatusRejected,
		model.ViolationStatusDisputed,
	}, record.AllowedTransitions)
	require.Len(t, record.Attachments, 1)
	assert.Equal(t, []string(record.Attachments), uploadedFiles(t, env.fs))

	ownerLink := env.linkFor(t, record.ID, f.Owner.ID)
	tenantLink := env.linkFor(t, record.ID, f.Tenant.ID)
	assert.NotEqual(t, ownerLink.Token, tenantLink.Token)
	assert.Nil(t, ownerLink.UsedAt)

	reported := env.jobs(t, model.TemplateViolationReported)
	require.Len(t, reported, 2)
	recipients := []string{reported[0].Recipient, reported[1].Recipient}
	assert.ElementsMatch(t, []string{f.Owner.Email, f.Tenant.Email}, recipients)
	assert.NotContains(t, recipients, f.OptedOut.Email)
	for _, job := range reported {
		assert.Contains(t, job.Payload["link"], "https://strata.example.com/violation/")
		assert.Equal(t, "1204", job.Payload["unitNumber"])
	}

	pending := env.jobs(t, model.TemplateViolationPendingApproval)
	require.Len(t, pending, 2)
	assert.ElementsMatch(t, []string{f.Admin.Email, f.Council.Email}, []string{pending[0].Recipient, pending[1].Recipient})

	history := env.history(t, record.ID)
	require.Len(t, history, 1)
	assert.Equal(t, model.HistoryActionCreated, history[0].Action)
	assert.Equal(t, f.Resident.ID, *history[0].UserID)

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.ViolationsCreated))

	logs, err := env.audit.List(context.Background(), f.AdminPrincipal(), AuditListOptions{Action: model.AuditActionViolationCreated})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, strconv.FormatInt(record.ID, 10), logs[0].EntityID)
}

func TestViolationService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	f := env.fixture
	ctx := context.Background()

	t.Run("short description", func(t *testing.T) {
		_, err := env.violations.Create(ctx, f.ResidentPrincipal(), CreateViolationInput{
			UnitID:        f.Unit.ID,
			ViolationType: "Parking",
			ViolationDate: "2026-03-14",
			Description:   "   too short   ",
		}, nil)
		require.ErrorIs(t, err, ErrInvalidInput)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "description")
	})

	t.Run("type required without category", func(t *testing.T) {
		_, err := env.violations.Create(ctx, f.ResidentPrincipal(), CreateViolationInput{
			UnitID:        f.Unit.ID,
			ViolationDate: "2026-03-14",
			Description:   "Bicycle left in the lobby overnight",
		}, nil)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := env.violations.Create(ctx, f.ResidentPrincipal(), CreateViolationInput{
			UnitID:        f.Unit.ID,
			ViolationType: "Parking",
			ViolationDate: "14/03/2026",
			Description:   "Car parked in the visitor stall all week",
		}, nil)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unknown unit", func(t *testing.T) {
		_, err := env.violations.Create(ctx, f.ResidentPrincipal(), CreateViolationInput{
			UnitID:        f.Unit.ID + 100,
			ViolationType: "Parking",
			ViolationDate: "2026-03-14",
			Description:   "Car parked in the visitor stall all week",
		}, nil)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unauthenticated principal", func(t *testing.T) {
		_, err := env.violations.Create(ctx, model.Principal{}, CreateViolationInput{}, nil)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	var count int64
	require.NoError(t, env.db.Model(&model.Violation{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestViolationService_CreateRejectedAttachmentLeavesNothing(t *testing.T) {
	env := newTestEnv(t)
	f := env.fixture

	_, err := env.violations.Create(context.Background(), f.ResidentPrincipal(), CreateViolationInput{
		UnitID:        f.Unit.ID,
		ViolationType: "Damage",
		ViolationDate: "2026-03-14",
		Description:   "Scratched paint along the elevator doors",
	}, []storage.Upload{
		{Filename: "photo.png", ContentType: "image/png", Body: bytes.NewReader(pngSample)},
		{Filename: "invoice.pdf", ContentType: "image/jpeg", Body: bytes.NewReader(pdfSample)},
	})
	require.ErrorIs(t, err, ErrAttachmentRejected)

	assert.Empty(t, uploadedFiles(t, env.fs))
	var count int64
	require.NoError(t, env.db.Model(&model.Violation{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.AttachmentsRejected))
}

func TestViolationService_ChangeStatus(t *testing.T) {
	env := newTestEnv(t)
	f := env.fixture
	ctx := context.Background()

	t.Run("residents cannot adjudicate", func(t *testing.T) {
		record := env.createViolation(t)
		_, err := env.violations.ChangeStatus(ctx, f.ResidentPrincipal(), record.ID, ChangeStatusInput{Status: model.ViolationStatusApproved})
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("rejection needs a reason", func(t *testing.T) {
		record := env.createViolation(t)
		_, err := env.violations.ChangeStatus(ctx, f.CouncilPrincipal(), record.ID, ChangeStatusInput{Status: model.ViolationStatusRejected})
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unknown status", func(t *testing.T) {
		record := env.createViolation(t)
		_, err := env.violations.ChangeStatus(ctx, f.CouncilPrincipal(), record.ID, ChangeStatusInput{Status: "closed"})
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("reject then rejected is terminal", func(t *testing.T) {
		record := env.createViolation(t)
		updated, err := env.violations.ChangeStatus(ctx, f.CouncilPrincipal(), record.ID, ChangeStatusInput{
			Status:          model.ViolationStatusRejected,
			RejectionReason: "Noise came from another unit",
		})
		require.NoError(t, err)
		assert.Equal(t, model.ViolationStatusRejected, updated.Status)
		assert.Empty(t, updated.AllowedTransitions)

		history := env.history(t, record.ID)
		require.Len(t, history, 2)
		assert.Equal(t, "Status changed to rejected", history[1].Action)
		require.NotNil(t, history[1].RejectionReason)
		assert.Equal(t, "Noise came from another unit", *history[1].RejectionReason)

		_, err = env.violations.ChangeStatus(ctx, f.AdminPrincipal(), record.ID, ChangeStatusInput{Status: model.ViolationStatusApproved})
		require.ErrorIs(t, err, ErrInvalidStatus)
		assert.Len(t, env.history(t, record.ID), 2)
	})

	t.Run("missing violation", func(t *testing.T) {
		_, err := env.violations.ChangeStatus(ctx, f.AdminPrincipal(), 99999, ChangeStatusInput{Status: model.ViolationStatusApproved})
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestViolationService_StaleTransitionConflicts(t *testing.T) {
	env := newTestEnv(t)
	f := env.fixture
	ctx := context.Background()

	record := env.createViolation(t)
	stale, err := env.violations.load(ctx, record.ID)
	require.NoError(t, err)

	_, err = env.violations.Approve(ctx, f.AdminPrincipal(), record.ID, ApproveInput{})
	require.NoError(t, err)

	err = env.violations.transition(ctx, transitionRequest{
		violation:       stale,
		to:              model.ViolationStatusRejected,
		actor:           int64Ptr(f.Council.ID),
		rejectionReason: "duplicate report",
	})
	require.ErrorIs(t, err, ErrConflict)

	current, err := env.violations.load(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ViolationStatusApproved, current.Status)
	assert.Len(t, env.history(t, record.ID), 2)
}

func TestViolationService_ApproveWithFine(t *testing.T) {
	env := newTestEnv(t)
	f := env.fixture
	ctx := context.Background()

	record := env.createViolation(t)
	updated, err := env.violations.Approve(ctx, f.CouncilPrincipal(), record.ID, ApproveInput{
		Amount:  int64Ptr(12550),
		Comment: "Second noise complaint this month",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ViolationStatusApproved, updated.Status)
	require.NotNil(t, updated.FineAmount)
	assert.Equal(t, int64(12550), *updated.FineAmount)

	history := env.history(t, record.ID)
	require.Len(t, history, 3)
	assert.Equal(t, model.HistoryActionFineSet, history[1].Action)
	assert.Equal(t, "Status changed to approved", history[2].Action)
	assert.Equal(t, "Second noise complaint this month", history[2].Details["comment"])

	approved := env.jobs(t, model.TemplateViolationApproved)
	require.Len(t, approved, 2)
	assert.Equal(t, "$125.50", approved[0].Payload["fineAmount"])
	assert.Equal(t, string(model.ViolationStatusApproved), approved[0].Payload["status"])

	t.Run("negative amount", func(t *testing.T) {
		other := env.createViolation(t)
		_, err := env.violations.Approve(ctx, f.CouncilPrincipal(), other.ID, ApproveInput{Amount: int64Ptr(-1)})
		require.ErrorIs(t, err, ErrInvalidInput)

		current, err := env.violations.load(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ViolationStatusPendingApproval, current.Status)
	})
}

func TestViolationService_SetFineKeepsStatus(t *testing.T) {
	env := newTestEnv(t)
	f := env.fixture
	ctx := context.Background()

	record := env.createViolation(t)
	updated, err := env.violations.SetFine(ctx, f.AdminPrincipal(), record.ID, SetFineInput{Amount: int64Ptr(5000)})
	require.NoError(t, err)
	assert.Equal(t, model.ViolationStatusPendingApproval, updated.Status)
	assert.Equal(t, int64(5000), *updated.FineAmount)

	updated, err = env.violations.SetFine(ctx, f.AdminPrincipal(), record.ID, SetFineInput{Amount: int64Ptr(7500)})
	require.NoError(t, err)
	assert.Equal(t, int64(7500), *updated.FineAmount)

	history := env.history(t, record.ID)
	require.Len(t, history, 3)
	assert.EqualValues(t, 5000, history[2].Details["previousAmount"])

	_, err = env.violations.SetFine(ctx, f.AdminPrincipal(), record.ID, SetFineInput{})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.violations.SetFine(ctx, f.ResidentPrincipal(), record.ID, SetFineInput{Amount: int64Ptr(1)})
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestViolationService_CommentsAndHistory(t *testing.T) {
	env := newTestEnv(t)
	f := env.fixture
	ctx := context.Background()

	record := env.createViolation(t)
	entry, err := env.violations.AddComment(ctx, f.ResidentPrincipal(), record.ID, CommentInput{Comment: "  Neighbour confirmed the noise  "})
	require.NoError(t, err)
	assert.Equal(t, "Neighbour confirmed the noise", entry.Details["comment"])

	_, err = env.violations.AddComment(ctx, f.ResidentPrincipal(), record.ID, CommentInput{Comment: "   "})
	require.ErrorIs(t, err, ErrInvalidInput)

	history, err := env.violations.History(ctx, f.ResidentPrincipal(), record.UUID.String())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.HistoryActionCreated, history[0].Action)
	assert.Equal(t, model.HistoryActionComment, history[1].Action)

	_, err = env.violations.History(ctx, f.ResidentPrincipal(), "not-a-violation")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestViolationService_GetListAndPending(t *testing.T) {
	env := newTestEnv(t)
	f := env.fixture
	ctx := context.Background()

	first := env.createViolation(t)
	second := env.createViolation(t)
	_, err := env.violations.Approve(ctx, f.AdminPrincipal(), second.ID, ApproveInput{})
	require.NoError(t, err)

	byUUID, err := env.violations.Get(ctx, f.ResidentPrincipal(), first.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, first.ID, byUUID.ID)
	byID, err := env.violations.Get(ctx, f.ResidentPrincipal(), strconv.FormatInt(first.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, first.UUID, byID.UUID)

	list, err := env.violations.List(ctx, f.ResidentPrincipal(), ListViolationsOptions{
		Statuses: []model.ViolationStatus{model.ViolationStatusApproved},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)
	require.Len(t, list.Violations, 1)
	assert.Equal(t, second.ID, list.Violations[0].ID)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 20, list.Limit)

	_, err = env.violations.List(ctx, f.ResidentPrincipal(), ListViolationsOptions{SortBy: "password"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.violations.List(ctx, f.ResidentPrincipal(), ListViolationsOptions{SortOrder: "sideways"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.violations.List(ctx, f.ResidentPrincipal(), ListViolationsOptions{Statuses: []model.ViolationStatus{"closed"}})
	require.ErrorIs(t, err, ErrInvalidInput)

	pending, err := env.violations.PendingApproval(ctx, f.CouncilPrincipal())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)
	_, err = env.violations.PendingApproval(ctx, f.ResidentPrincipal())
	require.ErrorIs(t, err, ErrPermissionDenied)

	recent, err := env.violations.Recent(ctx, f.ResidentPrincipal(), 0)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestViolationService_DeleteRemovesEverything(t *testing.T) {
	env := newTestEnv(t)
	f := env.fixture
	ctx := context.Background()

	record := env.createViolation(t, storage.Upload{
		Filename:    "notice.pdf",
		ContentType: "application/pdf",
		Body:        bytes.NewReader(pdfSample),
	})
	require.Len(t, uploadedFiles(t, env.fs), 1)

	require.NoError(t, env.violations.Delete(ctx, f.ResidentPrincipal(), record.UUID.String()))

	_, err := env.violations.Get(ctx, f.AdminPrincipal(), strconv.FormatInt(record.ID, 10))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, uploadedFiles(t, env.fs))

	links, err := env.links.ListByViolation(ctx, record.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
	assert.Empty(t, env.history(t, record.ID))

	require.ErrorIs(t, env.violations.Delete(ctx, f.ResidentPrincipal(), record.UUID.String()), ErrNotFound)
}

func TestViolationService_Attachment(t *testing.T) {
	env := newTestEnv(t)
	f := env.fixture

	record := env.createViolation(t, storage.Upload{
		Filename:    "balcony.png",
		ContentType: "image/png",
		Body:        bytes.NewReader(pngSample),
	})

	file, contentType, err := env.violations.Attachment(f.ResidentPrincipal(), record.Attachments[0])
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "image/png", contentType)

	_, _, err = env.violations.Attachment(f.ResidentPrincipal(), "../../etc/passwd")
	require.ErrorIs(t, err, ErrNotFound)
	_, _, err = env.violations.Attachment(model.Principal{}, record.Attachments[0])
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCategoryCatalog_CachesUntilFlushed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.fixture.Category.ID

	category, err := env.catalog.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Noise", category.Name)

	require.NoError(t, env.db.Model(&model.ViolationCategory{}).Where("id = ?", id).Update("name", "Late noise").Error)

	category, err = env.catalog.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Noise", category.Name)

	env.catalog.Flush()
	category, err = env.catalog.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Late noise", category.Name)

	active, err := env.catalog.Active(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = env.catalog.Get(ctx, id+50)
	require.ErrorIs(t, err, ErrNotFound)
}
