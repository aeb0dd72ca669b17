package usecase_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kettek/apng"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/proxima/pkg/domain/model"
	discordmodel "github.com/secmon-lab/proxima/pkg/domain/model/discord"
	"github.com/secmon-lab/proxima/pkg/domain/types"
	"github.com/secmon-lab/proxima/pkg/repository/memory"
	"github.com/secmon-lab/proxima/pkg/service/discord/discordtest"
	"github.com/secmon-lab/proxima/pkg/usecase"
)

const (
	testGuildID    = "1000"
	testCategoryID = "2000"
	testChannelID  = "2001"
	testThreadID   = "2002"
	testBotID      = "3000"
	testAppID      = "3001"
	testUserID     = "4000"
	testOtherID    = "4001"
	testBotRoleID  = "5000"
	testUserRoleID = "5001"
)

type fixture struct {
	repo  *memory.Memory
	svc   *discordtest.Service
	uc    *usecase.UseCases
	group *model.Group
	alice *model.Member
	bob   *model.Member
}

// newFixture builds a guild with a category, a text channel and a thread.
// The bot and the user both hold every permission the proxy needs.
func newFixture(t *testing.T, opts ...usecase.Option) *fixture {
	t.Helper()
	ctx := context.Background()

	repo := memory.New()
	svc := discordtest.New(testBotID, testAppID)

	svc.AddGuild(&discordmodel.Guild{ID: testGuildID, OwnerID: "9999"},
		&discordmodel.Role{ID: testGuildID, Permissions: types.PermissionViewChannel | types.PermissionSendMessages},
		&discordmodel.Role{ID: testBotRoleID, Permissions: types.PermissionManageWebhooks | types.PermissionManageMessages},
		&discordmodel.Role{ID: testUserRoleID, Permissions: types.PermissionManageWebhooks | types.PermissionManageMessages},
	)
	svc.AddMember(testGuildID, &discordmodel.Member{UserID: testBotID, Roles: []string{testBotRoleID}})
	svc.AddMember(testGuildID, &discordmodel.Member{UserID: testUserID, Roles: []string{testUserRoleID}})
	svc.AddMember(testGuildID, &discordmodel.Member{UserID: testOtherID})

	svc.AddChannel(&discordmodel.Channel{ID: testCategoryID, GuildID: testGuildID, Name: "category"})
	svc.AddChannel(&discordmodel.Channel{ID: testChannelID, GuildID: testGuildID, ParentID: testCategoryID, Name: "general"})
	svc.AddChannel(&discordmodel.Channel{ID: testThreadID, GuildID: testGuildID, ParentID: testChannelID, Name: "thread", Thread: true})

	group, err := repo.Group().Put(ctx, &model.Group{
		Name:      "system",
		Tag:       "| sys",
		AvatarURL: "https://example.com/group.png",
		Accounts:  []string{testUserID},
	})
	gt.NoError(t, err).Required()

	alice, err := repo.Member().Put(ctx, &model.Member{
		GroupID:   group.ID,
		Name:      "Alice",
		AvatarURL: "https://example.com/alice.png",
		ProxyTags: []model.ProxyTag{{Prefix: "a:"}},
	})
	gt.NoError(t, err).Required()

	bob, err := repo.Member().Put(ctx, &model.Member{
		GroupID:   group.ID,
		Name:      "Bob",
		CreatedAt: alice.CreatedAt.Add(time.Millisecond),
		ProxyTags: []model.ProxyTag{{Prefix: "[", Suffix: "]"}},
	})
	gt.NoError(t, err).Required()

	opts = append([]usecase.Option{usecase.WithNoticeTTL(10 * time.Millisecond)}, opts...)
	uc := usecase.New(repo, svc, opts...)
	t.Cleanup(func() {
		uc.Close()
		_ = repo.Close()
	})

	return &fixture{repo: repo, svc: svc, uc: uc, group: group, alice: alice, bob: bob}
}

var messageSeq atomic.Int64

// message returns a message by the test user in the test channel
func (f *fixture) message(content string) *discordmodel.Message {
	return &discordmodel.Message{
		ID:        strconv.FormatInt(70000+messageSeq.Add(1), 10),
		ChannelID: testChannelID,
		GuildID:   testGuildID,
		Author:    discordmodel.User{ID: testUserID, Username: "user"},
		Content:   content,
	}
}

// revokeBotRole strips the bot of its management role
func (f *fixture) revokeBotRole() {
	f.svc.AddMember(testGuildID, &discordmodel.Member{UserID: testBotID})
}

// denyUser applies a member overwrite denying perms to the user in the
// test channel
func (f *fixture) denyUser(perms types.Permission) {
	f.svc.AddChannel(&discordmodel.Channel{
		ID: testChannelID, GuildID: testGuildID, ParentID: testCategoryID, Name: "general",
		Overwrites: []discordmodel.Overwrite{
			{ID: testUserID, Type: discordmodel.OverwriteTypeMember, Deny: perms},
		},
	})
}

// eventually polls cond until it holds or a second has passed
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

// pngImage encodes a 2x2 image
func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 1, color.RGBA{B: 255, A: 255})

	var buf bytes.Buffer
	gt.NoError(t, png.Encode(&buf, img)).Required()
	return buf.Bytes()
}

// apngImage encodes a 4x4 animation with one solid frame per colour, each
// shown for delay hundredths of a second
func apngImage(t *testing.T, delay uint16, colors ...color.Color) []byte {
	t.Helper()
	anim := apng.APNG{}
	for _, c := range colors {
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
		anim.Frames = append(anim.Frames, apng.Frame{
			Image:            img,
			DelayNumerator:   delay,
			DelayDenominator: 100,
			BlendOp:          apng.BLEND_OP_SOURCE,
		})
	}

	var buf bytes.Buffer
	gt.NoError(t, apng.Encode(&buf, anim)).Required()
	return buf.Bytes()
}
