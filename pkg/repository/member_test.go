package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/proxima/pkg/domain/interfaces"
	"github.com/secmon-lab/proxima/pkg/domain/model"
)

func runMemberRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Put and Get keep proxy tags in order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Member().Put(ctx, &model.Member{
			GroupID: model.GroupID(uniqueID("group")),
			Name:    "Alice",
			ProxyTags: []model.ProxyTag{
				{Prefix: "a:"},
				{Prefix: "[", Suffix: "]", CaseSensitive: true},
				{Prefix: `\d>`, Regex: true},
			},
		})
		gt.NoError(t, err).Required()

		got, err := repo.Member().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Name).Equal("Alice")
		gt.Array(t, got.ProxyTags).Length(3)
		gt.Value(t, got.ProxyTags[1]).Equal(model.ProxyTag{Prefix: "[", Suffix: "]", CaseSensitive: true})
		gt.Bool(t, got.ProxyTags[2].Regex).True()
	})

	t.Run("Put rejects invalid member", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Member().Put(context.Background(), &model.Member{Name: "no group"})
		gt.Error(t, err)
	})

	t.Run("ListByGroup returns creation order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		groupID := model.GroupID(uniqueID("group"))
		base := time.Now().UTC().Truncate(time.Millisecond)

		second, err := repo.Member().Put(ctx, &model.Member{GroupID: groupID, Name: "second", CreatedAt: base.Add(time.Second)})
		gt.NoError(t, err).Required()
		first, err := repo.Member().Put(ctx, &model.Member{GroupID: groupID, Name: "first", CreatedAt: base})
		gt.NoError(t, err).Required()
		_, err = repo.Member().Put(ctx, &model.Member{GroupID: model.GroupID(uniqueID("other")), Name: "other"})
		gt.NoError(t, err).Required()

		members, err := repo.Member().ListByGroup(ctx, groupID)
		gt.NoError(t, err).Required()
		gt.Array(t, members).Length(2)
		gt.Value(t, members[0].ID).Equal(first.ID)
		gt.Value(t, members[1].ID).Equal(second.ID)
	})

	t.Run("moving a member is a single write", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		from := model.GroupID(uniqueID("from"))
		to := model.GroupID(uniqueID("to"))

		m, err := repo.Member().Put(ctx, &model.Member{GroupID: from, Name: "Bob"})
		gt.NoError(t, err).Required()
		m.GroupID = to
		_, err = repo.Member().Put(ctx, m)
		gt.NoError(t, err).Required()

		old, err := repo.Member().ListByGroup(ctx, from)
		gt.NoError(t, err).Required()
		gt.Array(t, old).Length(0)

		moved, err := repo.Member().ListByGroup(ctx, to)
		gt.NoError(t, err).Required()
		gt.Array(t, moved).Length(1)
	})

	t.Run("Delete and ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		m, err := repo.Member().Put(ctx, &model.Member{GroupID: "g", Name: "Carol"})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Member().Delete(ctx, m.ID))

		_, err = repo.Member().Get(ctx, m.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})
}

func TestMemoryMemberRepository(t *testing.T) {
	runMemberRepositoryTest(t, newMemoryRepository)
}

func TestFirestoreMemberRepository(t *testing.T) {
	runMemberRepositoryTest(t, newFirestoreRepository)
}
