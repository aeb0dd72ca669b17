package repository_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/proxima/pkg/domain/interfaces"
	"github.com/secmon-lab/proxima/pkg/domain/model"
)

func runEndpointRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Put, Get and Delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		channelID := uniqueID("channel")

		ep := &model.Endpoint{ChannelID: channelID, GuildID: "g1", WebhookID: "w1", Token: "secret"}
		gt.NoError(t, repo.Endpoint().Put(ctx, ep))

		got, err := repo.Endpoint().Get(ctx, channelID)
		gt.NoError(t, err).Required()
		gt.Value(t, *got).Equal(*ep)

		gt.NoError(t, repo.Endpoint().Delete(ctx, channelID))
		_, err = repo.Endpoint().Get(ctx, channelID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("Put requires webhook", func(t *testing.T) {
		repo := newRepo(t)
		gt.Error(t, repo.Endpoint().Put(context.Background(), &model.Endpoint{ChannelID: "c1"}))
	})
}

func TestMemoryEndpointRepository(t *testing.T) {
	runEndpointRepositoryTest(t, newMemoryRepository)
}

func TestFirestoreEndpointRepository(t *testing.T) {
	runEndpointRepositoryTest(t, newFirestoreRepository)
}
