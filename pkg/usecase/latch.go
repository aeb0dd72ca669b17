package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/interfaces"
	"github.com/secmon-lab/proxima/pkg/domain/model"
)

// LatchUseCase manages autoproxy state
type LatchUseCase struct {
	repo     interfaces.Repository
	identity *IdentityResolver
}

// NewLatchUseCase creates a LatchUseCase
func NewLatchUseCase(repo interfaces.Repository, identity *IdentityResolver) *LatchUseCase {
	return &LatchUseCase{repo: repo, identity: identity}
}

// FindMember looks up a member by name, case-insensitively, among the
// groups userID may proxy as
func (uc *LatchUseCase) FindMember(ctx context.Context, userID, name string) (*model.Member, *model.Group, error) {
	groups, err := uc.repo.Group().ListByAccount(ctx, userID)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to list groups", goerr.V("user_id", userID))
	}

	for _, group := range groups {
		members, err := uc.repo.Member().ListByGroup(ctx, group.ID)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to list members", goerr.V("group_id", group.ID))
		}
		for _, m := range members {
			if strings.EqualFold(m.Name, name) {
				return m, group, nil
			}
		}
	}

	return nil, nil, goerr.Wrap(ErrNotFound, "member not found", goerr.V("user_id", userID), goerr.V("name", name))
}

func (uc *LatchUseCase) load(ctx context.Context, userID, scope string) (*model.Latch, error) {
	latch, err := uc.repo.Latch().Get(ctx, userID, scope)
	if errors.Is(err, interfaces.ErrNotFound) {
		return model.NewLatch(userID, scope), nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get latch", goerr.V("user_id", userID), goerr.V("scope", scope))
	}
	return latch, nil
}

// Toggle applies an autoproxy command in guildID, or everywhere when global
// is set. enabled nil flips the state; memberName selects the member.
func (uc *LatchUseCase) Toggle(ctx context.Context, userID, guildID string, global bool, enabled *bool, memberName string) (*model.Latch, error) {
	scope := guildID
	if global || scope == "" {
		scope = model.GlobalScope
	}

	latch, err := uc.load(ctx, userID, scope)
	if err != nil {
		return nil, err
	}

	var memberID *model.MemberID
	if memberName != "" {
		member, _, err := uc.FindMember(ctx, userID, memberName)
		if err != nil {
			return nil, err
		}
		memberID = &member.ID
	}

	latch.Toggle(enabled, memberID)
	if err := uc.repo.Latch().Put(ctx, latch); err != nil {
		return nil, goerr.Wrap(err, "failed to save latch", goerr.V("user_id", userID), goerr.V("scope", scope))
	}
	return latch, nil
}

// Switch sets the latched member without changing whether autoproxy is on.
// The global latch is used when it is enabled, otherwise the guild latch.
func (uc *LatchUseCase) Switch(ctx context.Context, userID, guildID, memberName string) (*model.Latch, error) {
	member, _, err := uc.FindMember(ctx, userID, memberName)
	if err != nil {
		return nil, err
	}

	latch, err := uc.identity.EffectiveLatch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	if latch == nil {
		scope := guildID
		if scope == "" {
			scope = model.GlobalScope
		}
		latch = model.NewLatch(userID, scope)
	}

	latch.MemberID = member.ID
	if err := uc.repo.Latch().Put(ctx, latch); err != nil {
		return nil, goerr.Wrap(err, "failed to save latch", goerr.V("user_id", userID), goerr.V("scope", latch.Scope))
	}
	return latch, nil
}

// ClearMember forgets the latched member, keeping autoproxy enabled
func (uc *LatchUseCase) ClearMember(ctx context.Context, latch *model.Latch) error {
	latch.MemberID = ""
	if err := uc.repo.Latch().Put(ctx, latch); err != nil {
		return goerr.Wrap(err, "failed to reset latch", goerr.V("user_id", latch.UserID), goerr.V("scope", latch.Scope))
	}
	return nil
}
