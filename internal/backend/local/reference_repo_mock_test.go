package local

import (
	"context"
	"sync"

	"github.com/wonlinemenu/refadmin/internal/domain"
)

var _ referenceRepo = &referenceRepoMock{}

type referenceRepoMock struct {
	ListFunc   func(ctx context.Context, orderBy domain.ReferenceColumn, ascending bool) ([]domain.Reference, error)
	CountFunc  func(ctx context.Context) (int, error)
	CreateFunc func(ctx context.Context, in domain.NewReference) (*domain.Reference, error)
	UpdateFunc func(ctx context.Context, id string, patch domain.ReferencePatch) (*domain.Reference, error)
	DeleteFunc func(ctx context.Context, id string) error

	mu    sync.RWMutex
	calls struct {
		List []struct {
			OrderBy   domain.ReferenceColumn
			Ascending bool
		}
		Count  int
		Create []domain.NewReference
		Update []string
		Delete []string
	}
}

func (mock *referenceRepoMock) List(ctx context.Context, orderBy domain.ReferenceColumn, ascending bool) ([]domain.Reference, error) {
	if mock.ListFunc == nil {
		panic("referenceRepoMock.ListFunc: method is nil but referenceRepo.List was just called")
	}
	mock.mu.Lock()
	mock.calls.List = append(mock.calls.List, struct {
		OrderBy   domain.ReferenceColumn
		Ascending bool
	}{orderBy, ascending})
	mock.mu.Unlock()
	return mock.ListFunc(ctx, orderBy, ascending)
}

func (mock *referenceRepoMock) Count(ctx context.Context) (int, error) {
	if mock.CountFunc == nil {
		panic("referenceRepoMock.CountFunc: method is nil but referenceRepo.Count was just called")
	}
	mock.mu.Lock()
	mock.calls.Count++
	mock.mu.Unlock()
	return mock.CountFunc(ctx)
}

func (mock *referenceRepoMock) Create(ctx context.Context, in domain.NewReference) (*domain.Reference, error) {
	if mock.CreateFunc == nil {
		panic("referenceRepoMock.CreateFunc: method is nil but referenceRepo.Create was just called")
	}
	mock.mu.Lock()
	mock.calls.Create = append(mock.calls.Create, in)
	mock.mu.Unlock()
	return mock.CreateFunc(ctx, in)
}

func (mock *referenceRepoMock) Update(ctx context.Context, id string, patch domain.ReferencePatch) (*domain.Reference, error) {
	if mock.UpdateFunc == nil {
		panic("referenceRepoMock.UpdateFunc: method is nil but referenceRepo.Update was just called")
	}
	mock.mu.Lock()
	mock.calls.Update = append(mock.calls.Update, id)
	mock.mu.Unlock()
	return mock.UpdateFunc(ctx, id, patch)
}

func (mock *referenceRepoMock) Delete(ctx context.Context, id string) error {
	if mock.DeleteFunc == nil {
		panic("referenceRepoMock.DeleteFunc: method is nil but referenceRepo.Delete was just called")
	}
	mock.mu.Lock()
	mock.calls.Delete = append(mock.calls.Delete, id)
	mock.mu.Unlock()
	return mock.DeleteFunc(ctx, id)
}

func (mock *referenceRepoMock) CreateCalls() []domain.NewReference {
	mock.mu.RLock()
	defer mock.mu.RUnlock()
	return mock.calls.Create
}

func (mock *referenceRepoMock) ListCalls() []struct {
	OrderBy   domain.ReferenceColumn
	Ascending bool
} {
	mock.mu.RLock()
	defer mock.mu.RUnlock()
	return mock.calls.List
}
