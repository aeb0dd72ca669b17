package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/model"
)

type groupRepository struct {
	mu     sync.RWMutex
	groups map[model.GroupID]*model.Group
}

func newGroupRepository() *groupRepository {
	return &groupRepository{
		groups: make(map[model.GroupID]*model.Group),
	}
}

// copyGroup creates a deep copy of a group
func copyGroup(g *model.Group) *model.Group {
	copied := *g
	copied.Accounts = append([]string(nil), g.Accounts...)
	copied.ChannelRestrictions = append([]string(nil), g.ChannelRestrictions...)
	return &copied
}

func (r *groupRepository) Put(ctx context.Context, group *model.Group) (*model.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyGroup(group)
	if stored.ID == "" {
		stored.ID = model.NewGroupID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if err := stored.Validate(); err != nil {
		return nil, err
	}

	r.groups[stored.ID] = stored
	return copyGroup(stored), nil
}

func (r *groupRepository) Get(ctx context.Context, id model.GroupID) (*model.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group, exists := r.groups[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "group not found", goerr.V("id", id))
	}
	return copyGroup(group), nil
}

func (r *groupRepository) List(ctx context.Context) ([]*model.Group, error) {
	return r.filter(func(*model.Group) bool { return true }), nil
}

func (r *groupRepository) ListByAccount(ctx context.Context, userID string) ([]*model.Group, error) {
	return r.filter(func(g *model.Group) bool { return g.HasAccount(userID) }), nil
}

func (r *groupRepository) filter(fn func(*model.Group) bool) []*model.Group {
	r.mu.RLock()
	defer r.mu.RUnlock()

	groups := make([]*model.Group, 0, len(r.groups))
	for _, g := range r.groups {
		if fn(g) {
			groups = append(groups, copyGroup(g))
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].CreatedAt.Before(groups[j].CreatedAt)
	})
	return groups
}

func (r *groupRepository) Delete(ctx context.Context, id model.GroupID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.groups[id]; !exists {
		return goerr.Wrap(ErrNotFound, "group not found", goerr.V("id", id))
	}
	delete(r.groups, id)
	return nil
}
