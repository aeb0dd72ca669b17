package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/proxima/pkg/domain/model"
	"github.com/secmon-lab/proxima/pkg/usecase"
)

func TestLatch_Toggle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	latch, err := f.uc.Latch.Toggle(ctx, testUserID, testGuildID, false, nil, "")
	gt.NoError(t, err).Required()
	gt.Bool(t, latch.Enabled).True()
	gt.Value(t, latch.Scope).Equal(testGuildID)

	latch, err = f.uc.Latch.Toggle(ctx, testUserID, testGuildID, false, nil, "alice")
	gt.NoError(t, err).Required()
	gt.Bool(t, latch.Enabled).True()
	gt.Value(t, latch.MemberID).Equal(f.alice.ID)

	latch, err = f.uc.Latch.Toggle(ctx, testUserID, testGuildID, false, nil, "")
	gt.NoError(t, err).Required()
	gt.Bool(t, latch.Enabled).False()
	gt.Value(t, latch.MemberID).Equal(model.MemberID(""))

	on := true
	latch, err = f.uc.Latch.Toggle(ctx, testUserID, "", false, &on, "bob")
	gt.NoError(t, err).Required()
	gt.Bool(t, latch.IsGlobal()).True()
	gt.Value(t, latch.MemberID).Equal(f.bob.ID)

	_, err = f.uc.Latch.Toggle(ctx, testUserID, testGuildID, false, nil, "nobody")
	gt.Bool(t, errors.Is(err, usecase.ErrNotFound)).True()
}

func TestLatch_Switch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	latch, err := f.uc.Latch.Switch(ctx, testUserID, testGuildID, "Bob")
	gt.NoError(t, err).Required()
	gt.Bool(t, latch.Enabled).False()
	gt.Value(t, latch.MemberID).Equal(f.bob.ID)

	on := true
	_, err = f.uc.Latch.Toggle(ctx, testUserID, testGuildID, true, &on, "")
	gt.NoError(t, err).Required()

	latch, err = f.uc.Latch.Switch(ctx, testUserID, testGuildID, "alice")
	gt.NoError(t, err).Required()
	gt.Bool(t, latch.IsGlobal()).True()
	gt.Value(t, latch.MemberID).Equal(f.alice.ID)

	guild, err := f.repo.Latch().Get(ctx, testUserID, testGuildID)
	gt.NoError(t, err).Required()
	gt.Value(t, guild.MemberID).Equal(f.bob.ID)
}

func TestLatch_FindMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	member, group, err := f.uc.Latch.FindMember(ctx, testUserID, "aLiCe")
	gt.NoError(t, err).Required()
	gt.Value(t, member.ID).Equal(f.alice.ID)
	gt.Value(t, group.ID).Equal(f.group.ID)

	_, _, err = f.uc.Latch.FindMember(ctx, testOtherID, "alice")
	gt.Bool(t, errors.Is(err, usecase.ErrNotFound)).True()
}
