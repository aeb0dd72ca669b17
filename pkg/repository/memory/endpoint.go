package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/model"
)

type endpointRepository struct {
	mu        sync.RWMutex
	endpoints map[string]model.Endpoint
}

func newEndpointRepository() *endpointRepository {
	return &endpointRepository{
		endpoints: make(map[string]model.Endpoint),
	}
}

func (r *endpointRepository) Get(ctx context.Context, channelID string) (*model.Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, exists := r.endpoints[channelID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "endpoint not found", goerr.V("channel_id", channelID))
	}
	return &ep, nil
}

func (r *endpointRepository) Put(ctx context.Context, endpoint *model.Endpoint) error {
	if endpoint.ChannelID == "" || endpoint.WebhookID == "" {
		return goerr.New("endpoint channel and webhook are required", goerr.V("channel_id", endpoint.ChannelID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[endpoint.ChannelID] = *endpoint
	return nil
}

func (r *endpointRepository) Delete(ctx context.Context, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.endpoints[channelID]; !exists {
		return goerr.Wrap(ErrNotFound, "endpoint not found", goerr.V("channel_id", channelID))
	}
	delete(r.endpoints, channelID)
	return nil
}
