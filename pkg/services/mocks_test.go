package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/causetrace/rcfa-engine/pkg/models"
)

// In-memory repository mocks shared by the service tests. They are stateful
// and guarded by a mutex so the concurrency tests can hammer them from many
// goroutines.

type mockInvestigationRepository struct {
	mu             sync.Mutex
	investigations []*models.Investigation
}

func (m *mockInvestigationRepository) Create(ctx context.Context, inv *models.Investigation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	inv.CreatedAt = time.Now()
	cp := *inv
	m.investigations = append(m.investigations, &cp)
	return nil
}

func (m *mockInvestigationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Investigation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(id), nil
}

func (m *mockInvestigationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Investigation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(id), nil
}

// find returns a copy of the live row, mirroring the tombstone filter of the
// real queries.
func (m *mockInvestigationRepository) find(id uuid.UUID) *models.Investigation {
	for _, inv := range m.investigations {
		if inv.ID == id && inv.DeletedAt == nil {
			cp := *inv
			return &cp
		}
	}
	return nil
}

func (m *mockInvestigationRepository) List(ctx context.Context, limit int) ([]*models.Investigation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Investigation
	for i := len(m.investigations) - 1; i >= 0; i-- {
		if m.investigations[i].DeletedAt != nil {
			continue
		}
		cp := *m.investigations[i]
		result = append(result, &cp)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *mockInvestigationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.InvestigationStatus, closedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.investigations {
		if inv.ID == id && inv.DeletedAt == nil {
			inv.Status = status
			inv.ClosedAt = closedAt
			return nil
		}
	}
	return nil
}

func (m *mockInvestigationRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.investigations {
		if inv.ID == id && inv.DeletedAt == nil {
			now := time.Now()
			inv.DeletedAt = &now
			return nil
		}
	}
	return nil
}

// add seeds an investigation directly, bypassing Create.
func (m *mockInvestigationRepository) add(inv *models.Investigation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	m.investigations = append(m.investigations, &cp)
}

type mockRootCauseCandidateRepository struct {
	mu         sync.Mutex
	candidates []*models.RootCauseCandidate
}

func (m *mockRootCauseCandidateRepository) CreateBatch(ctx context.Context, candidates []*models.RootCauseCandidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range candidates {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.CreatedAt = time.Now()
		cp := *c
		m.candidates = append(m.candidates, &cp)
	}
	return nil
}

func (m *mockRootCauseCandidateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RootCauseCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.candidates {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRootCauseCandidateRepository) ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.RootCauseCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.RootCauseCandidate
	for _, c := range m.candidates {
		if c.InvestigationID == investigationID {
			cp := *c
			result = append(result, &cp)
		}
	}
	return result, nil
}

type mockFollowupQuestionRepository struct {
	mu        sync.Mutex
	questions []*models.FollowupQuestion
}

func (m *mockFollowupQuestionRepository) CreateBatch(ctx context.Context, questions []*models.FollowupQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range questions {
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		q.CreatedAt = time.Now()
		cp := *q
		m.questions = append(m.questions, &cp)
	}
	return nil
}

func (m *mockFollowupQuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FollowupQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.questions {
		if q.ID == id {
			cp := *q
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockFollowupQuestionRepository) ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.FollowupQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.FollowupQuestion
	for _, q := range m.questions {
		if q.InvestigationID == investigationID {
			cp := *q
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *mockFollowupQuestionRepository) SubmitAnswer(ctx context.Context, id uuid.UUID, answerText string, answeredBy uuid.UUID, answeredAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.questions {
		if q.ID == id {
			answer := answerText
			by := answeredBy
			at := answeredAt
			q.AnswerText = &answer
			q.AnsweredByUserID = &by
			q.AnsweredAt = &at
			return nil
		}
	}
	return nil
}

type mockActionItemCandidateRepository struct {
	mu         sync.Mutex
	candidates []*models.ActionItemCandidate
}

func (m *mockActionItemCandidateRepository) CreateBatch(ctx context.Context, candidates []*models.ActionItemCandidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range candidates {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.CreatedAt = time.Now()
		cp := *c
		m.candidates = append(m.candidates, &cp)
	}
	return nil
}

func (m *mockActionItemCandidateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ActionItemCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.candidates {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockActionItemCandidateRepository) ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.ActionItemCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.ActionItemCandidate
	for _, c := range m.candidates {
		if c.InvestigationID == investigationID {
			cp := *c
			result = append(result, &cp)
		}
	}
	return result, nil
}

// mockActionItemRepository enforces the unique constraint on
// selected_from_candidate_id the way Postgres does. When skipDuplicateCheck
// is set, GetBySelectedCandidate pretends there is no existing promotion so
// tests can drive the insert into the constraint backstop.
type mockActionItemRepository struct {
	mu                 sync.Mutex
	items              []*models.ActionItem
	skipDuplicateCheck bool
}

func (m *mockActionItemRepository) Create(ctx context.Context, item *models.ActionItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.SelectedFromCandidateID != nil {
		for _, existing := range m.items {
			if existing.SelectedFromCandidateID != nil && *existing.SelectedFromCandidateID == *item.SelectedFromCandidateID {
				return &pgconn.PgError{Code: "23505", ConstraintName: "rcfa_action_items_selected_candidate_idx"}
			}
		}
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.CreatedAt = time.Now()
	cp := *item
	m.items = append(m.items, &cp)
	return nil
}

func (m *mockActionItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ActionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ID == id {
			cp := *item
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockActionItemRepository) GetBySelectedCandidate(ctx context.Context, candidateID uuid.UUID) (*models.ActionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipDuplicateCheck {
		return nil, nil
	}
	for _, item := range m.items {
		if item.SelectedFromCandidateID != nil && *item.SelectedFromCandidateID == candidateID {
			cp := *item
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockActionItemRepository) ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.ActionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.ActionItem
	for _, item := range m.items {
		if item.InvestigationID == investigationID {
			cp := *item
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *mockActionItemRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ActionItemStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ID == id {
			item.Status = status
			return nil
		}
	}
	return nil
}

type mockRootCauseFinalRepository struct {
	mu                 sync.Mutex
	finals             []*models.RootCauseFinal
	skipDuplicateCheck bool
}

func (m *mockRootCauseFinalRepository) Create(ctx context.Context, final *models.RootCauseFinal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if final.SelectedFromCandidateID != nil {
		for _, existing := range m.finals {
			if existing.SelectedFromCandidateID != nil && *existing.SelectedFromCandidateID == *final.SelectedFromCandidateID {
				return &pgconn.PgError{Code: "23505", ConstraintName: "rcfa_root_cause_finals_selected_candidate_idx"}
			}
		}
	}
	if final.ID == uuid.Nil {
		final.ID = uuid.New()
	}
	final.CreatedAt = time.Now()
	cp := *final
	m.finals = append(m.finals, &cp)
	return nil
}

func (m *mockRootCauseFinalRepository) GetBySelectedCandidate(ctx context.Context, candidateID uuid.UUID) (*models.RootCauseFinal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipDuplicateCheck {
		return nil, nil
	}
	for _, final := range m.finals {
		if final.SelectedFromCandidateID != nil && *final.SelectedFromCandidateID == candidateID {
			cp := *final
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRootCauseFinalRepository) ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.RootCauseFinal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.RootCauseFinal
	for _, final := range m.finals {
		if final.InvestigationID == investigationID {
			cp := *final
			result = append(result, &cp)
		}
	}
	return result, nil
}

type mockAuditRepository struct {
	mu        sync.Mutex
	nextSeq   int64
	events    []*models.AuditEvent
	appendErr error
}

func (m *mockAuditRepository) Append(ctx context.Context, event *models.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	m.nextSeq++
	event.Seq = m.nextSeq
	event.CreatedAt = time.Now()
	cp := *event
	m.events = append(m.events, &cp)
	return nil
}

func (m *mockAuditRepository) ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.AuditEvent
	for _, e := range m.events {
		if e.InvestigationID == investigationID {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *mockAuditRepository) eventsOfType(eventType string) []*models.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.AuditEvent
	for _, e := range m.events {
		if e.EventType == eventType {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result
}

// fakeTxRunner serializes transactions with a mutex and rolls back by
// restoring a caller-provided snapshot when fn fails. Mirrors enough of the
// real transaction semantics for the race and atomicity tests.
type fakeTxRunner struct {
	mu       sync.Mutex
	snapshot func() (restore func())
}

func (f *fakeTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var restore func()
	if f.snapshot != nil {
		restore = f.snapshot()
	}
	if err := fn(ctx); err != nil {
		if restore != nil {
			restore()
		}
		return err
	}
	return nil
}
