package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/interfaces"
	"github.com/secmon-lab/proxima/pkg/domain/model"
	discordmodel "github.com/secmon-lab/proxima/pkg/domain/model/discord"
	"github.com/secmon-lab/proxima/pkg/domain/types"
)

// Identity is the persona a message will be proxied as
type Identity struct {
	Member *model.Member
	Group  *model.Group

	// Body is the message content with proxy tags removed
	Body string

	// Latch is the effective autoproxy state, nil when the user has none
	Latch *model.Latch
}

// IdentityResolver picks the member for a message from proxy tags and
// autoproxy state
type IdentityResolver struct {
	repo interfaces.Repository
}

// NewIdentityResolver creates an IdentityResolver
func NewIdentityResolver(repo interfaces.Repository) *IdentityResolver {
	return &IdentityResolver{repo: repo}
}

// EffectiveLatch returns the global latch when it is enabled, otherwise the
// guild latch. It returns nil when neither exists.
func (r *IdentityResolver) EffectiveLatch(ctx context.Context, userID, guildID string) (*model.Latch, error) {
	latch, err := r.getLatch(ctx, userID, model.GlobalScope)
	if err != nil {
		return nil, err
	}
	if latch != nil && latch.Enabled {
		return latch, nil
	}

	return r.getLatch(ctx, userID, guildID)
}

func (r *IdentityResolver) getLatch(ctx context.Context, userID, scope string) (*model.Latch, error) {
	latch, err := r.repo.Latch().Get(ctx, userID, scope)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get latch", goerr.V("user_id", userID), goerr.V("scope", scope))
	}
	return latch, nil
}

// Resolve walks the author's groups in order and returns the first member
// whose proxy tag matches msg. When nothing matches, an enabled latch's
// member is used with the full content. chain is the message channel
// followed by its ancestors. Resolve returns nil when no identity applies.
func (r *IdentityResolver) Resolve(ctx context.Context, msg *discordmodel.Message, chain []string, trace *model.Trace) (*Identity, error) {
	groups, err := r.repo.Group().ListByAccount(ctx, msg.Author.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list groups", goerr.V("user_id", msg.Author.ID))
	}

	latch, err := r.EffectiveLatch(ctx, msg.Author.ID, msg.GuildID)
	if err != nil {
		return nil, err
	}

	var latched *Identity
	for _, group := range groups {
		if !group.AllowsChannel(chain) {
			trace.Add(types.TraceGroupChannelRestricted, group.Name)
			continue
		}

		members, err := r.repo.Member().ListByGroup(ctx, group.ID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list members", goerr.V("group_id", group.ID))
		}

		for _, member := range members {
			if latch != nil && latch.Enabled && latch.MemberID == member.ID {
				latched = &Identity{Member: member, Group: group, Body: msg.Content, Latch: latch}
			}

			for _, tag := range member.ProxyTags {
				body, ok := tag.Match(msg.Content)
				if !ok {
					continue
				}

				if latch != nil && latch.Enabled && latch.MemberID != member.ID {
					latch.MemberID = member.ID
					if err := r.repo.Latch().Put(ctx, latch); err != nil {
						return nil, goerr.Wrap(err, "failed to update latch", goerr.V("user_id", msg.Author.ID))
					}
				}
				return &Identity{Member: member, Group: group, Body: body, Latch: latch}, nil
			}
		}
	}

	if latch == nil {
		trace.Add(types.TraceAuthorNoTags)
		return nil, nil
	}
	if latched != nil {
		return latched, nil
	}

	trace.Add(types.TraceAuthorNoTagsNoLatch)
	return nil, nil
}
