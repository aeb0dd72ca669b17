package http_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/m-mizutani/gt"
	httpctrl "github.com/secmon-lab/proxima/pkg/controller/http"
	"github.com/secmon-lab/proxima/pkg/domain/model"
	"github.com/secmon-lab/proxima/pkg/repository/memory"
	"github.com/secmon-lab/proxima/pkg/service/discord/discordtest"
	"github.com/secmon-lab/proxima/pkg/usecase"
)

type testServer struct {
	server  *httpctrl.Server
	private ed25519.PrivateKey
	repo    *memory.Memory
	alice   *model.Member
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	public, private, err := ed25519.GenerateKey(rand.Reader)
	gt.NoError(t, err).Required()

	repo := memory.New()
	group, err := repo.Group().Put(ctx, &model.Group{Name: "sys", Accounts: []string{"u1"}})
	gt.NoError(t, err).Required()
	alice, err := repo.Member().Put(ctx, &model.Member{GroupID: group.ID, Name: "Alice"})
	gt.NoError(t, err).Required()

	uc := usecase.New(repo, discordtest.New("bot", "app"))
	t.Cleanup(func() {
		uc.Close()
		_ = repo.Close()
	})

	return &testServer{
		server:  httpctrl.New(httpctrl.WithInteractions(httpctrl.NewInteractionHandler(uc), public)),
		private: private,
		repo:    repo,
		alice:   alice,
	}
}

func (s *testServer) post(t *testing.T, payload any, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	gt.NoError(t, err).Required()

	req := httptest.NewRequest(http.MethodPost, "/hooks/discord/interactions", bytes.NewReader(body))
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("X-Signature-Timestamp", timestamp)
	if sign {
		sig := ed25519.Sign(s.private, append([]byte(timestamp), body...))
		req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(sig))
	} else {
		req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(make([]byte, ed25519.SignatureSize)))
	}

	w := httptest.NewRecorder()
	s.server.ServeHTTP(w, req)
	return w
}

func command(name string, options ...map[string]any) map[string]any {
	return map[string]any{
		"id":         "i1",
		"type":       int(discordgo.InteractionApplicationCommand),
		"guild_id":   "g1",
		"channel_id": "c1",
		"member":     map[string]any{"user": map[string]any{"id": "u1"}},
		"data":       map[string]any{"id": "cmd", "name": name, "options": options},
	}
}

func option(name string, value any) map[string]any {
	typ := discordgo.ApplicationCommandOptionString
	if _, ok := value.(bool); ok {
		typ = discordgo.ApplicationCommandOptionBoolean
	}
	return map[string]any{"name": name, "type": int(typ), "value": value}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) discordgo.InteractionResponse {
	t.Helper()
	gt.Value(t, w.Code).Equal(http.StatusOK)
	var resp discordgo.InteractionResponse
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp)).Required()
	return resp
}

func TestInteraction_Ping(t *testing.T) {
	s := newTestServer(t)

	resp := decode(t, s.post(t, map[string]any{"id": "i0", "type": int(discordgo.InteractionPing)}, true))
	gt.Value(t, resp.Type).Equal(discordgo.InteractionResponsePong)
}

func TestInteraction_RejectsBadSignature(t *testing.T) {
	s := newTestServer(t)

	w := s.post(t, map[string]any{"id": "i0", "type": int(discordgo.InteractionPing)}, false)
	gt.Value(t, w.Code).Equal(http.StatusUnauthorized)
}

func TestInteraction_Autoproxy(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	resp := decode(t, s.post(t, command("autoproxy", option("member", "alice")), true))
	gt.Value(t, resp.Type).Equal(discordgo.InteractionResponseChannelMessageWithSource)
	gt.Value(t, resp.Data.Flags).Equal(discordgo.MessageFlagsEphemeral)
	gt.S(t, resp.Data.Content).Contains("autoproxy enabled in this server as alice")

	latch, err := s.repo.Latch().Get(ctx, "u1", "g1")
	gt.NoError(t, err).Required()
	gt.Bool(t, latch.Enabled).True()
	gt.Value(t, latch.MemberID).Equal(s.alice.ID)

	resp = decode(t, s.post(t, command("autoproxy", option("enabled", false)), true))
	gt.S(t, resp.Data.Content).Contains("autoproxy disabled")

	resp = decode(t, s.post(t, command("autoproxy", option("global", true), option("member", "nobody")), true))
	gt.S(t, resp.Data.Content).Contains("could not find")
}

func TestInteraction_Switch(t *testing.T) {
	s := newTestServer(t)

	resp := decode(t, s.post(t, command("switch", option("member", "Alice")), true))
	gt.S(t, resp.Data.Content).Contains("Alice")

	latch, err := s.repo.Latch().Get(context.Background(), "u1", "g1")
	gt.NoError(t, err).Required()
	gt.Bool(t, latch.Enabled).False()
	gt.Value(t, latch.MemberID).Equal(s.alice.ID)
}

func TestInteraction_Info(t *testing.T) {
	s := newTestServer(t)
	now := time.Now().UTC()

	gt.NoError(t, s.repo.ProxiedMessage().Put(context.Background(), &model.ProxiedMessage{
		OriginalID: "o1",
		ProxyID:    "p1",
		AuthorID:   "u1",
		MemberID:   s.alice.ID,
		ChannelID:  "c1",
		GuildID:    "g1",
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	})).Required()

	resp := decode(t, s.post(t, command("info", option("message_id", "p1")), true))
	gt.Value(t, resp.Data.Content).Equal("sent by <@u1> as Alice (sys)")

	resp = decode(t, s.post(t, command("info", option("message_id", "p2")), true))
	gt.S(t, resp.Data.Content).Contains("could not find")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.Value(t, w.Body.String()).Equal("ok")
}
