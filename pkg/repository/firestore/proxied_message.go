package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/model"
	"google.golang.org/api/iterator"
)

type proxiedMessageDocument struct {
	OriginalID string    `firestore:"original_id"`
	ProxyID    string    `firestore:"proxy_id"`
	AuthorID   string    `firestore:"author_id"`
	MemberID   string    `firestore:"member_id"`
	ChannelID  string    `firestore:"channel_id"`
	GuildID    string    `firestore:"guild_id"`
	WebhookID  string    `firestore:"webhook_id"`
	CreatedAt  time.Time `firestore:"created_at"`
	ExpiresAt  time.Time `firestore:"expires_at"`
}

type proxiedMessageRepository struct {
	client     *firestore.Client
	collection collection
}

func proxiedMessageToModel(doc *proxiedMessageDocument) *model.ProxiedMessage {
	return &model.ProxiedMessage{
		OriginalID: doc.OriginalID,
		ProxyID:    doc.ProxyID,
		AuthorID:   doc.AuthorID,
		MemberID:   model.MemberID(doc.MemberID),
		ChannelID:  doc.ChannelID,
		GuildID:    doc.GuildID,
		WebhookID:  doc.WebhookID,
		CreatedAt:  doc.CreatedAt,
		ExpiresAt:  doc.ExpiresAt,
	}
}

func (r *proxiedMessageRepository) Put(ctx context.Context, msg *model.ProxiedMessage) error {
	if msg.ProxyID == "" {
		return goerr.New("proxy message ID is required", goerr.V("original_id", msg.OriginalID))
	}

	doc := &proxiedMessageDocument{
		OriginalID: msg.OriginalID,
		ProxyID:    msg.ProxyID,
		AuthorID:   msg.AuthorID,
		MemberID:   string(msg.MemberID),
		ChannelID:  msg.ChannelID,
		GuildID:    msg.GuildID,
		WebhookID:  msg.WebhookID,
		CreatedAt:  msg.CreatedAt,
		ExpiresAt:  msg.ExpiresAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.ExpiresAt.IsZero() {
		doc.ExpiresAt = doc.CreatedAt.Add(model.ProxiedMessageTTL)
	}

	if _, err := r.client.Collection(r.collection.String()).Doc(msg.ProxyID).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put proxied message", goerr.V("proxy_id", msg.ProxyID))
	}
	return nil
}

func (r *proxiedMessageRepository) Get(ctx context.Context, proxyID string) (*model.ProxiedMessage, error) {
	snap, err := r.client.Collection(r.collection.String()).Doc(proxyID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrNotFound, "proxied message not found", goerr.V("proxy_id", proxyID))
		}
		return nil, goerr.Wrap(err, "failed to get proxied message", goerr.V("proxy_id", proxyID))
	}

	var doc proxiedMessageDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal proxied message", goerr.V("proxy_id", proxyID))
	}

	msg := proxiedMessageToModel(&doc)
	if msg.Expired(time.Now()) {
		return nil, goerr.Wrap(ErrNotFound, "proxied message expired", goerr.V("proxy_id", proxyID))
	}
	return msg, nil
}

// Latest relies on the (author_id, channel_id, created_at desc) composite
// index created by the migrate command
func (r *proxiedMessageRepository) Latest(ctx context.Context, authorID, channelID string) (*model.ProxiedMessage, error) {
	iter := r.client.Collection(r.collection.String()).
		Where("author_id", "==", authorID).
		Where("channel_id", "==", channelID).
		OrderBy("created_at", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(ErrNotFound, "proxied message not found",
			goerr.V("author_id", authorID), goerr.V("channel_id", channelID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query latest proxied message",
			goerr.V("author_id", authorID), goerr.V("channel_id", channelID))
	}

	var doc proxiedMessageDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal proxied message", goerr.V("doc_id", snap.Ref.ID))
	}

	msg := proxiedMessageToModel(&doc)
	if msg.Expired(time.Now()) {
		return nil, goerr.Wrap(ErrNotFound, "proxied message expired", goerr.V("proxy_id", msg.ProxyID))
	}
	return msg, nil
}

func (r *proxiedMessageRepository) Delete(ctx context.Context, proxyID string) error {
	ref := r.client.Collection(r.collection.String()).Doc(proxyID)
	if _, err := ref.Get(ctx); err != nil {
		if isNotFound(err) {
			return goerr.Wrap(ErrNotFound, "proxied message not found", goerr.V("proxy_id", proxyID))
		}
		return goerr.Wrap(err, "failed to get proxied message", goerr.V("proxy_id", proxyID))
	}

	if _, err := ref.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete proxied message", goerr.V("proxy_id", proxyID))
	}
	return nil
}

func (r *proxiedMessageRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	const batchSize = 500
	total := 0

	for {
		iter := r.client.Collection(r.collection.String()).
			Where("expires_at", "<=", now).
			Limit(batchSize).
			Documents(ctx)
		writer := r.client.BulkWriter(ctx)
		count := 0

		for {
			snap, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				writer.End()
				return total, goerr.Wrap(err, "failed to iterate expired proxied messages")
			}

			if _, err := writer.Delete(snap.Ref); err != nil {
				iter.Stop()
				writer.End()
				return total, goerr.Wrap(err, "failed to delete proxied message", goerr.V("doc_id", snap.Ref.ID))
			}
			count++
		}
		iter.Stop()
		writer.End()

		total += count
		if count < batchSize {
			break
		}
	}

	return total, nil
}
