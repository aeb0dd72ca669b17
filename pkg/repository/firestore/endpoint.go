package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/model"
)

type endpointDocument struct {
	ChannelID string `firestore:"channel_id"`
	GuildID   string `firestore:"guild_id"`
	WebhookID string `firestore:"webhook_id"`
	Token     string `firestore:"token"`
}

type endpointRepository struct {
	client     *firestore.Client
	collection collection
}

func (r *endpointRepository) Get(ctx context.Context, channelID string) (*model.Endpoint, error) {
	snap, err := r.client.Collection(r.collection.String()).Doc(channelID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrNotFound, "endpoint not found", goerr.V("channel_id", channelID))
		}
		return nil, goerr.Wrap(err, "failed to get endpoint", goerr.V("channel_id", channelID))
	}

	var doc endpointDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal endpoint", goerr.V("channel_id", channelID))
	}
	return &model.Endpoint{
		ChannelID: doc.ChannelID,
		GuildID:   doc.GuildID,
		WebhookID: doc.WebhookID,
		Token:     doc.Token,
	}, nil
}

func (r *endpointRepository) Put(ctx context.Context, endpoint *model.Endpoint) error {
	if endpoint.ChannelID == "" || endpoint.WebhookID == "" {
		return goerr.New("endpoint channel and webhook are required", goerr.V("channel_id", endpoint.ChannelID))
	}

	doc := &endpointDocument{
		ChannelID: endpoint.ChannelID,
		GuildID:   endpoint.GuildID,
		WebhookID: endpoint.WebhookID,
		Token:     endpoint.Token,
	}
	if _, err := r.client.Collection(r.collection.String()).Doc(endpoint.ChannelID).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put endpoint", goerr.V("channel_id", endpoint.ChannelID))
	}
	return nil
}

func (r *endpointRepository) Delete(ctx context.Context, channelID string) error {
	ref := r.client.Collection(r.collection.String()).Doc(channelID)
	if _, err := ref.Get(ctx); err != nil {
		if isNotFound(err) {
			return goerr.Wrap(ErrNotFound, "endpoint not found", goerr.V("channel_id", channelID))
		}
		return goerr.Wrap(err, "failed to get endpoint", goerr.V("channel_id", channelID))
	}

	if _, err := ref.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete endpoint", goerr.V("channel_id", channelID))
	}
	return nil
}
