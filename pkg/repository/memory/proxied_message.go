package memory

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/model"
	"github.com/secmon-lab/proxima/pkg/utils/ttlcache"
)

// proxiedMessageRepository keeps records in an expiring cache, so they
// disappear on their own once ExpiresAt passes
type proxiedMessageRepository struct {
	cache *ttlcache.Cache[string, model.ProxiedMessage]
}

func newProxiedMessageRepository() *proxiedMessageRepository {
	return &proxiedMessageRepository{
		cache: ttlcache.New[string, model.ProxiedMessage](),
	}
}

func (r *proxiedMessageRepository) Put(ctx context.Context, msg *model.ProxiedMessage) error {
	if msg.ProxyID == "" {
		return goerr.New("proxy message ID is required", goerr.V("original_id", msg.OriginalID))
	}

	stored := *msg
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if stored.ExpiresAt.IsZero() {
		stored.ExpiresAt = stored.CreatedAt.Add(model.ProxiedMessageTTL)
	}

	r.cache.Set(stored.ProxyID, stored, time.Until(stored.ExpiresAt))
	return nil
}

func (r *proxiedMessageRepository) Get(ctx context.Context, proxyID string) (*model.ProxiedMessage, error) {
	msg, ok := r.cache.Get(proxyID)
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "proxied message not found", goerr.V("proxy_id", proxyID))
	}
	return &msg, nil
}

func (r *proxiedMessageRepository) Latest(ctx context.Context, authorID, channelID string) (*model.ProxiedMessage, error) {
	var latest *model.ProxiedMessage
	r.cache.Range(func(_ string, msg model.ProxiedMessage) bool {
		if msg.AuthorID != authorID || msg.ChannelID != channelID {
			return true
		}
		if latest == nil || msg.CreatedAt.After(latest.CreatedAt) {
			m := msg
			latest = &m
		}
		return true
	})

	if latest == nil {
		return nil, goerr.Wrap(ErrNotFound, "proxied message not found",
			goerr.V("author_id", authorID), goerr.V("channel_id", channelID))
	}
	return latest, nil
}

func (r *proxiedMessageRepository) Delete(ctx context.Context, proxyID string) error {
	if _, ok := r.cache.Get(proxyID); !ok {
		return goerr.Wrap(ErrNotFound, "proxied message not found", goerr.V("proxy_id", proxyID))
	}
	r.cache.Delete(proxyID)
	return nil
}

func (r *proxiedMessageRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	var expired []string
	r.cache.Range(func(id string, msg model.ProxiedMessage) bool {
		if msg.Expired(now) {
			expired = append(expired, id)
		}
		return true
	})

	for _, id := range expired {
		r.cache.Delete(id)
	}
	return len(expired), nil
}
