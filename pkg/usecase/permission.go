package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	discordmodel "github.com/secmon-lab/proxima/pkg/domain/model/discord"
	"github.com/secmon-lab/proxima/pkg/domain/types"
	"github.com/secmon-lab/proxima/pkg/service/discord"
	"github.com/secmon-lab/proxima/pkg/utils/ttlcache"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultCacheTTL is how long fetched Discord objects and permission
	// verdicts are reused
	DefaultCacheTTL = 60 * time.Second

	// maxChannelDepth bounds the parent walk (thread -> channel -> category)
	maxChannelDepth = 4
)

// PermissionResolver computes effective Discord permissions with cached
// upstream objects
type PermissionResolver struct {
	svc discord.Service
	ttl time.Duration
	now func() time.Time

	guilds   *ttlcache.Cache[string, *discordmodel.Guild]
	roles    *ttlcache.Cache[string, []*discordmodel.Role]
	members  *ttlcache.Cache[string, *discordmodel.Member]
	channels *ttlcache.Cache[string, *discordmodel.Channel]
	verdicts *ttlcache.Cache[string, bool]
}

// NewPermissionResolver creates a resolver whose caches live for ttl
func NewPermissionResolver(svc discord.Service, ttl time.Duration, now func() time.Time) *PermissionResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}

	return &PermissionResolver{
		svc:      svc,
		ttl:      ttl,
		now:      now,
		guilds:   ttlcache.New[string, *discordmodel.Guild](),
		roles:    ttlcache.New[string, []*discordmodel.Role](),
		members:  ttlcache.New[string, *discordmodel.Member](),
		channels: ttlcache.New[string, *discordmodel.Channel](),
		verdicts: ttlcache.New[string, bool](),
	}
}

// Close stops every cache timer
func (r *PermissionResolver) Close() {
	r.guilds.Close()
	r.roles.Close()
	r.members.Close()
	r.channels.Close()
	r.verdicts.Close()
}

// cached returns the value under key or loads and stores it
func cached[V any](ctx context.Context, c *ttlcache.Cache[string, V], key string, ttl time.Duration, load func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// Guild returns the guild, cached
func (r *PermissionResolver) Guild(ctx context.Context, guildID string) (*discordmodel.Guild, error) {
	return cached(ctx, r.guilds, guildID, r.ttl, func(ctx context.Context) (*discordmodel.Guild, error) {
		return r.svc.Guild(ctx, guildID)
	})
}

// Channel returns the channel, cached
func (r *PermissionResolver) Channel(ctx context.Context, channelID string) (*discordmodel.Channel, error) {
	return cached(ctx, r.channels, channelID, r.ttl, func(ctx context.Context) (*discordmodel.Channel, error) {
		return r.svc.Channel(ctx, channelID)
	})
}

// ChannelChain returns channelID followed by its ancestors, nearest first
func (r *PermissionResolver) ChannelChain(ctx context.Context, channelID string) ([]*discordmodel.Channel, error) {
	var chain []*discordmodel.Channel
	for id := channelID; id != "" && len(chain) < maxChannelDepth; {
		ch, err := r.Channel(ctx, id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, ch)
		id = ch.ParentID
	}
	return chain, nil
}

// Permissions returns userID's effective permissions in channelID
func (r *PermissionResolver) Permissions(ctx context.Context, guildID, channelID, userID string) (types.Permission, error) {
	var (
		guild  *discordmodel.Guild
		roles  []*discordmodel.Role
		member *discordmodel.Member
		chain  []*discordmodel.Channel
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		guild, err = r.Guild(egCtx, guildID)
		return err
	})
	eg.Go(func() error {
		var err error
		roles, err = cached(egCtx, r.roles, guildID, r.ttl, func(ctx context.Context) ([]*discordmodel.Role, error) {
			return r.svc.Roles(ctx, guildID)
		})
		return err
	})
	eg.Go(func() error {
		var err error
		member, err = cached(egCtx, r.members, guildID+":"+userID, r.ttl, func(ctx context.Context) (*discordmodel.Member, error) {
			return r.svc.Member(ctx, guildID, userID)
		})
		return err
	})
	eg.Go(func() error {
		var err error
		chain, err = r.ChannelChain(egCtx, channelID)
		return err
	})

	if err := eg.Wait(); err != nil {
		return 0, goerr.Wrap(err, "failed to resolve permission inputs",
			goerr.V("guild_id", guildID), goerr.V("channel_id", channelID), goerr.V("user_id", userID))
	}

	overwritables := make([]discordmodel.Overwritable, len(chain))
	for i, ch := range chain {
		overwritables[i] = ch
	}

	return discordmodel.ComputePermissions(guild, roles, member, overwritables, r.now()), nil
}

// HasSendCapability reports whether userID can view and send in channelID,
// plus any extra permissions. The verdict is cached per user and channel.
func (r *PermissionResolver) HasSendCapability(ctx context.Context, guildID, channelID, userID string, extra ...types.Permission) (bool, error) {
	required := types.PermissionSendRequired
	for _, p := range extra {
		required |= p
	}

	key := userID + ":" + channelID
	if required != types.PermissionSendRequired {
		key = fmt.Sprintf("%s:%d", key, uint64(required))
	}

	return cached(ctx, r.verdicts, key, r.ttl, func(ctx context.Context) (bool, error) {
		perms, err := r.Permissions(ctx, guildID, channelID, userID)
		if err != nil {
			return false, err
		}
		return perms.Has(required), nil
	})
}
