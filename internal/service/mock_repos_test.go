package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drydock-dev/drydock/internal/domain"
)

// --- Mock Insight Repository ---

type mockInsightRepo struct {
	mu       sync.RWMutex
	insights map[uuid.UUID]*domain.Insight
}

func newMockInsightRepo() *mockInsightRepo {
	return &mockInsightRepo{insights: make(map[uuid.UUID]*domain.Insight)}
}

func (m *mockInsightRepo) Create(_ context.Context, i *domain.Insight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	i.CreatedAt = time.Now().UTC()
	stored := *i
	m.insights[stored.ID] = &stored
	return nil
}

func (m *mockInsightRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Insight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.insights[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (m *mockInsightRepo) List(_ context.Context, f domain.InsightFilter) ([]*domain.Insight, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Insight
	for _, i := range m.insights {
		if f.Severity != nil && i.Severity != *f.Severity {
			continue
		}
		if f.Category != nil && i.Category != *f.Category {
			continue
		}
		if f.ContainerID != nil && i.ContainerID != *f.ContainerID {
			continue
		}
		if f.Acknowledged != nil && i.Acknowledged != *f.Acknowledged {
			continue
		}
		cp := *i
		result = append(result, &cp)
	}
	sort.Slice(result, func(a, b int) bool { return result[a].CreatedAt.After(result[b].CreatedAt) })
	return result, len(result), nil
}

func (m *mockInsightRepo) Acknowledge(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.insights[id]
	if !ok {
		return domain.ErrNotFound
	}
	i.Acknowledged = true
	return nil
}

func (m *mockInsightRepo) HasOpenInsight(_ context.Context, containerID, category string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, i := range m.insights {
		if i.ContainerID == containerID && i.Category == category && !i.Acknowledged {
			return true, nil
		}
	}
	return false, nil
}

// --- Mock Action Repository ---

type mockActionRepo struct {
	mu               sync.Mutex
	actions          map[uuid.UUID]*domain.Action
	byInsight        map[uuid.UUID]uuid.UUID
	markExecutingErr error
}

func newMockActionRepo() *mockActionRepo {
	return &mockActionRepo{
		actions:   make(map[uuid.UUID]*domain.Action),
		byInsight: make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *mockActionRepo) Create(_ context.Context, a *domain.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.InsightID != nil {
		if _, exists := m.byInsight[*a.InsightID]; exists {
			return domain.ErrConflict
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()
	stored := *a
	m.actions[stored.ID] = &stored
	if a.InsightID != nil {
		m.byInsight[*a.InsightID] = a.ID
	}
	return nil
}

func (m *mockActionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockActionRepo) GetByInsightID(_ context.Context, insightID uuid.UUID) (*domain.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byInsight[insightID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m.actions[id]
	return &cp, nil
}

func (m *mockActionRepo) List(_ context.Context, f domain.ActionFilter) ([]*domain.Action, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Action
	for _, a := range m.actions {
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.ContainerID != nil && a.ContainerID != *f.ContainerID {
			continue
		}
		if f.InsightID != nil && (a.InsightID == nil || *a.InsightID != *f.InsightID) {
			continue
		}
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(a, b int) bool { return result[a].CreatedAt.After(result[b].CreatedAt) })
	return result, len(result), nil
}

// transition mimics the conditional UPDATE of the real repository: it mutates
// the row only while the current status is one of the expected ones. Like the
// real driver, it refuses to run on a dead context.
func (m *mockActionRepo) transition(ctx context.Context, id uuid.UUID, from []domain.ActionStatus, mutate func(*domain.Action)) (*domain.Action, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for _, s := range from {
		if a.Status == s {
			mutate(a)
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: action is %s", domain.ErrInvalidState, a.Status)
}

func (m *mockActionRepo) Approve(ctx context.Context, id uuid.UUID, approvedBy string, at time.Time) (*domain.Action, error) {
	return m.transition(ctx, id, []domain.ActionStatus{domain.ActionStatusPending}, func(a *domain.Action) {
		a.Status = domain.ActionStatusApproved
		a.ApprovedBy = &approvedBy
		a.ApprovedAt = &at
	})
}

func (m *mockActionRepo) Reject(ctx context.Context, id uuid.UUID, rejectedBy, reason string, at time.Time) (*domain.Action, error) {
	return m.transition(ctx, id, []domain.ActionStatus{domain.ActionStatusPending}, func(a *domain.Action) {
		a.Status = domain.ActionStatusRejected
		a.RejectedBy = &rejectedBy
		a.RejectedAt = &at
		a.RejectionReason = &reason
	})
}

func (m *mockActionRepo) MarkExecuting(ctx context.Context, id uuid.UUID, at time.Time) error {
	if m.markExecutingErr != nil {
		return m.markExecutingErr
	}
	_, err := m.transition(ctx, id, []domain.ActionStatus{domain.ActionStatusApproved}, func(a *domain.Action) {
		a.Status = domain.ActionStatusExecuting
		a.ExecutedAt = &at
	})
	return err
}

func (m *mockActionRepo) Complete(ctx context.Context, id uuid.UUID, result string, durationMS int64, at time.Time) error {
	_, err := m.transition(ctx, id, []domain.ActionStatus{domain.ActionStatusExecuting}, func(a *domain.Action) {
		a.Status = domain.ActionStatusCompleted
		a.ExecutionResult = &result
		a.ExecutionDurationMS = &durationMS
		a.CompletedAt = &at
	})
	return err
}

// Fail accepts executing and approved, matching the real repository's widened
// predicate for finalizing an action whose executing mark never landed.
func (m *mockActionRepo) Fail(ctx context.Context, id uuid.UUID, result string, durationMS int64, at time.Time) error {
	_, err := m.transition(ctx, id, []domain.ActionStatus{domain.ActionStatusExecuting, domain.ActionStatusApproved}, func(a *domain.Action) {
		a.Status = domain.ActionStatusFailed
		a.ExecutionResult = &result
		a.ExecutionDurationMS = &durationMS
		a.CompletedAt = &at
	})
	return err
}

// --- Mock Audit Repository ---

type mockAuditRepo struct {
	mu      sync.RWMutex
	entries []*domain.AuditEntry
	failing bool
}

func newMockAuditRepo() *mockAuditRepo {
	return &mockAuditRepo{}
}

func (m *mockAuditRepo) Create(_ context.Context, e *domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return fmt.Errorf("audit store unavailable")
	}
	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockAuditRepo) List(_ context.Context, f domain.AuditFilter) ([]*domain.AuditEntry, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*domain.AuditEntry
	for _, e := range m.entries {
		if f.Action != nil && e.Action != *f.Action {
			continue
		}
		if f.UserID != nil && (e.UserID == nil || *e.UserID != *f.UserID) {
			continue
		}
		if f.TargetType != nil && (e.TargetType == nil || *e.TargetType != *f.TargetType) {
			continue
		}
		cp := *e
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(a, b int) bool { return matched[a].CreatedAt.After(matched[b].CreatedAt) })

	total := len(matched)
	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[f.Offset:]
		}
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

// find returns audit entries recorded for the given action name.
func (m *mockAuditRepo) find(action string) []*domain.AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.AuditEntry
	for _, e := range m.entries {
		if e.Action == action {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

// --- Mock Webhook Repository ---

type mockWebhookRepo struct {
	mu            sync.RWMutex
	subscriptions map[uuid.UUID]*domain.WebhookSubscription
	deliveries    map[uuid.UUID]*domain.WebhookDelivery
}

func newMockWebhookRepo() *mockWebhookRepo {
	return &mockWebhookRepo{
		subscriptions: make(map[uuid.UUID]*domain.WebhookSubscription),
		deliveries:    make(map[uuid.UUID]*domain.WebhookDelivery),
	}
}

func (m *mockWebhookRepo) CreateSubscription(_ context.Context, sub *domain.WebhookSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.subscriptions {
		if existing.URL == sub.URL {
			return domain.ErrConflict
		}
	}
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now().UTC()
	stored := *sub
	m.subscriptions[stored.ID] = &stored
	return nil
}

func (m *mockWebhookRepo) GetSubscription(_ context.Context, id uuid.UUID) (*domain.WebhookSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.subscriptions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *mockWebhookRepo) ListSubscriptions(_ context.Context, activeOnly bool) ([]*domain.WebhookSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.WebhookSubscription
	for _, sub := range m.subscriptions {
		if activeOnly && !sub.Active {
			continue
		}
		cp := *sub
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockWebhookRepo) SetSubscriptionActive(_ context.Context, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subscriptions[id]
	if !ok {
		return domain.ErrNotFound
	}
	sub.Active = active
	return nil
}

func (m *mockWebhookRepo) CreateDelivery(_ context.Context, d *domain.WebhookDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = uuid.New()
	d.CreatedAt = time.Now().UTC()
	stored := *d
	m.deliveries[stored.ID] = &stored
	return nil
}

func (m *mockWebhookRepo) GetDelivery(_ context.Context, id uuid.UUID) (*domain.WebhookDelivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.deliveries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockWebhookRepo) ListDeliveries(_ context.Context, webhookID uuid.UUID, page, perPage int) ([]*domain.WebhookDelivery, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.WebhookDelivery
	for _, d := range m.deliveries {
		if d.WebhookID != webhookID {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, len(out), nil
}

func (m *mockWebhookRepo) ClaimDelivery(_ context.Context, id uuid.UUID, now, nextRetryAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if d.Status != domain.DeliveryStatusPending || d.NextRetryAt.After(now) {
		return 0, domain.ErrConflict
	}
	d.AttemptCount++
	d.NextRetryAt = nextRetryAt
	return d.AttemptCount, nil
}

func (m *mockWebhookRepo) MarkDelivered(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.Status = domain.DeliveryStatusDelivered
	d.DeliveredAt = &at
	return nil
}

func (m *mockWebhookRepo) RecordFailure(_ context.Context, id uuid.UUID, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.LastError = &lastError
	return nil
}

func (m *mockWebhookRepo) MarkExhausted(_ context.Context, id uuid.UUID, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.Status = domain.DeliveryStatusExhausted
	d.LastError = &lastError
	return nil
}

func (m *mockWebhookRepo) ListDue(_ context.Context, now time.Time, limit int) ([]*domain.WebhookDelivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.WebhookDelivery
	for _, d := range m.deliveries {
		if d.Status != domain.DeliveryStatusPending || d.NextRetryAt.After(now) {
			continue
		}
		cp := *d
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockWebhookRepo) DeleteSettledBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, d := range m.deliveries {
		if d.Status == domain.DeliveryStatusPending || d.CreatedAt.After(cutoff) {
			continue
		}
		delete(m.deliveries, id)
		n++
	}
	return n, nil
}

// --- Mock Span Repository ---

type mockSpanRepo struct {
	mu    sync.RWMutex
	spans map[uuid.UUID]*domain.Span
}

func newMockSpanRepo() *mockSpanRepo {
	return &mockSpanRepo{spans: make(map[uuid.UUID]*domain.Span)}
}

func (m *mockSpanRepo) Insert(_ context.Context, s *domain.Span) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.spans[s.ID]; exists {
		return domain.ErrConflict
	}
	cp := *s
	m.spans[cp.ID] = &cp
	return nil
}

func (m *mockSpanRepo) GetTrace(_ context.Context, traceID uuid.UUID) ([]*domain.Span, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Span
	for _, s := range m.spans {
		if s.TraceID == traceID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].StartTime.Before(out[b].StartTime) })
	return out, nil
}

func (m *mockSpanRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.spans {
		if s.EndTime.Before(cutoff) {
			delete(m.spans, id)
			n++
		}
	}
	return n, nil
}
