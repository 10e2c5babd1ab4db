package capability

import (
	"context"
	"sync"

	"github.com/drydock-dev/drydock/internal/domain"
)

type NotifyInsightFunc func(ctx context.Context, insight *domain.Insight)

type SuggestActionFunc func(ctx context.Context, insight *domain.Insight) (*domain.Action, error)

type ScanContainerFunc func(ctx context.Context, containerID string) ([]domain.Finding, error)

// Registry holds the cross-domain capabilities resolved at composition time.
// Domains register their implementations during start-up and callers invoke
// them through the registry, never by importing the providing domain. A
// capability that was never registered degrades to a safe no-op so the
// pipeline still works in stand-alone and test configurations.
type Registry struct {
	mu      sync.RWMutex
	notify  NotifyInsightFunc
	suggest SuggestActionFunc
	scan    ScanContainerFunc
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) RegisterNotifier(fn NotifyInsightFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify = fn
}

func (r *Registry) RegisterActionSuggester(fn SuggestActionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suggest = fn
}

func (r *Registry) RegisterSecurityScanner(fn ScanContainerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scan = fn
}

func (r *Registry) NotifyInsight(ctx context.Context, insight *domain.Insight) {
	r.mu.RLock()
	fn := r.notify
	r.mu.RUnlock()

	if fn == nil {
		return
	}
	fn(ctx, insight)
}

func (r *Registry) SuggestAction(ctx context.Context, insight *domain.Insight) (*domain.Action, error) {
	r.mu.RLock()
	fn := r.suggest
	r.mu.RUnlock()

	if fn == nil {
		return nil, nil
	}
	return fn(ctx, insight)
}

func (r *Registry) ScanContainer(ctx context.Context, containerID string) ([]domain.Finding, error) {
	r.mu.RLock()
	fn := r.scan
	r.mu.RUnlock()

	if fn == nil {
		return nil, nil
	}
	return fn(ctx, containerID)
}
