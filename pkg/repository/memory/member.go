package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/model"
)

type memberRepository struct {
	mu      sync.RWMutex
	members map[model.MemberID]*model.Member
}

func newMemberRepository() *memberRepository {
	return &memberRepository{
		members: make(map[model.MemberID]*model.Member),
	}
}

func copyMember(m *model.Member) *model.Member {
	copied := *m
	copied.ProxyTags = append([]model.ProxyTag(nil), m.ProxyTags...)
	return &copied
}

func (r *memberRepository) Put(ctx context.Context, member *model.Member) (*model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyMember(member)
	if stored.ID == "" {
		stored.ID = model.NewMemberID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if err := stored.Validate(); err != nil {
		return nil, err
	}

	r.members[stored.ID] = stored
	return copyMember(stored), nil
}

func (r *memberRepository) Get(ctx context.Context, id model.MemberID) (*model.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	member, exists := r.members[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "member not found", goerr.V("id", id))
	}
	return copyMember(member), nil
}

func (r *memberRepository) ListByGroup(ctx context.Context, groupID model.GroupID) ([]*model.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var members []*model.Member
	for _, m := range r.members {
		if m.GroupID == groupID {
			members = append(members, copyMember(m))
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].CreatedAt.Before(members[j].CreatedAt)
	})
	return members, nil
}

func (r *memberRepository) Delete(ctx context.Context, id model.MemberID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[id]; !exists {
		return goerr.Wrap(ErrNotFound, "member not found", goerr.V("id", id))
	}
	delete(r.members, id)
	return nil
}
