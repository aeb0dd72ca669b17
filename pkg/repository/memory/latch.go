package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/model"
)

type latchRepository struct {
	mu      sync.RWMutex
	latches map[model.LatchID]model.Latch
}

func newLatchRepository() *latchRepository {
	return &latchRepository{
		latches: make(map[model.LatchID]model.Latch),
	}
}

func (r *latchRepository) Get(ctx context.Context, userID, scope string) (*model.Latch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	latch, exists := r.latches[model.NewLatchID(userID, scope)]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "latch not found", goerr.V("user_id", userID), goerr.V("scope", scope))
	}
	return &latch, nil
}

func (r *latchRepository) Put(ctx context.Context, latch *model.Latch) error {
	if latch.UserID == "" || latch.Scope == "" {
		return goerr.New("latch user and scope are required", goerr.V("latch", latch))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.latches[latch.ID()] = *latch
	return nil
}

func (r *latchRepository) Delete(ctx context.Context, userID, scope string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := model.NewLatchID(userID, scope)
	if _, exists := r.latches[id]; !exists {
		return goerr.Wrap(ErrNotFound, "latch not found", goerr.V("user_id", userID), goerr.V("scope", scope))
	}
	delete(r.latches, id)
	return nil
}
