package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"strata-violations/internal/auth"
	"strata-violations/internal/metrics"
	"strata-violations/internal/model"
	"strata-violations/internal/notification"
	"strata-violations/internal/repository"
	"strata-violations/internal/storage"
	"strata-violations/internal/testutil"
)

const testSecret = "test-secret"

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

type sentMail struct {
	to  string
	msg notification.Message
}

func (m *fakeMailer) Send(_ context.Context, to string, msg notification.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, msg: msg})
	return nil
}

func (m *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

type testEnv struct {
	db         *gorm.DB
	fixture    testutil.Fixture
	fs         afero.Fs
	mailer     *fakeMailer
	metrics    *metrics.Metrics
	violations *ViolationService
	disputes   *DisputeService
	reports    *ReportService
	audit      *AuditService
	catalog    *CategoryCatalog
	outbox     *repository.OutboxRepository
	links      *repository.AccessLinkRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	fixture := testutil.Seed(t, db)

	fs := afero.NewMemMapFs()
	store, err := storage.NewStore(fs, "/uploads", 5, 1<<20, nil)
	require.NoError(t, err)

	m, err := metrics.New()
	require.NoError(t, err)
	renderer, err := notification.NewRenderer()
	require.NoError(t, err)

	violationRepo := repository.NewViolationRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	linkRepo := repository.NewAccessLinkRepository(db)
	catalog := NewCategoryCatalog(repository.NewCategoryRepository(db), time.Minute)

	violations := NewViolationService(violationRepo, unitRepo, catalog, auditRepo, store, m, zerolog.Nop(), ViolationServiceConfig{
		PublicBaseURL: "https://strata.example.com/",
		AccessLinkTTL: 14 * 24 * time.Hour,
	})
	mailer := &fakeMailer{}
	disputes := NewDisputeService(
		violations,
		linkRepo,
		unitRepo,
		auditRepo,
		auth.NewIssuer(testSecret, time.Hour),
		mailer,
		renderer,
		m,
		zerolog.Nop(),
		DisputeServiceConfig{CodeTTL: 15 * time.Minute},
	)

	return &testEnv{
		db:         db,
		fixture:    fixture,
		fs:         fs,
		mailer:     mailer,
		metrics:    m,
		violations: violations,
		disputes:   disputes,
		reports:    NewReportService(repository.NewReportRepository(db), violationRepo),
		audit:      NewAuditService(auditRepo),
		catalog:    catalog,
		outbox:     repository.NewOutboxRepository(db),
		links:      linkRepo,
	}
}

func (e *testEnv) createViolation(t *testing.T, uploads ...storage.Upload) *model.ViolationRecord {
	t.Helper()
	categoryID := e.fixture.Category.ID
	record, err := e.violations.Create(context.Background(), e.fixture.ResidentPrincipal(), CreateViolationInput{
		UnitID:        e.fixture.Unit.ID,
		CategoryID:    &categoryID,
		ViolationDate: "2026-03-14",
		ViolationTime: "23:40",
		Description:   "Loud music from the balcony past midnight",
	}, uploads)
	require.NoError(t, err)
	return record
}

func (e *testEnv) linkFor(t *testing.T, violationID, personID int64) model.ViolationAccessLink {
	t.Helper()
	links, err := e.links.ListByViolation(context.Background(), violationID)
	require.NoError(t, err)
	for _, link := range links {
		if link.PersonID != nil && *link.PersonID == personID {
			return link
		}
	}
	t.Fatalf("no access link for person %d", personID)
	return model.ViolationAccessLink{}
}

func (e *testEnv) history(t *testing.T, violationID int64) []model.ViolationHistory {
	t.Helper()
	var rows []model.ViolationHistory
	require.NoError(t, e.db.Where("violation_id = ?", violationID).Order("id ASC").Find(&rows).Error)
	return rows
}

func (e *testEnv) jobs(t *testing.T, template model.NotificationTemplate) []model.NotificationJob {
	t.Helper()
	var jobs []model.NotificationJob
	require.NoError(t, e.db.Where("template = ?", template).Order("id ASC").Find(&jobs).Error)
	return jobs
}

func int64Ptr(v int64) *int64 {
	return &v
}
