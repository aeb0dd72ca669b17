package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/proxima/pkg/cli/config"
	"github.com/secmon-lab/proxima/pkg/repository/memory"
	"github.com/secmon-lab/proxima/pkg/service/worker"
)

const validConfig = `
[proxy]
webhook_name = "custom proxy"
notice_ttl = "5s"
cache_ttl = "1m"
sweep_interval = "30m"

[[group]]
name = "system"
tag = "| sys"
avatar_url = "https://example.com/sys.png"
accounts = ["4000"]

  [[group.member]]
  name = "Alice"

    [[group.member.tag]]
    prefix = "a:"

  [[group.member]]
  name = "Bob"
  avatar_url = "https://example.com/bob.png"

    [[group.member.tag]]
    prefix = "["
    suffix = "]"

    [[group.member.tag]]
    prefix = "^b\\d+:"
    regex = true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600)).Required()
	return path
}

func TestLoadSettings(t *testing.T) {
	settings, err := config.LoadSettings(writeConfig(t, validConfig))
	gt.NoError(t, err).Required()

	gt.Value(t, settings.Proxy.WebhookName).Equal("custom proxy")
	gt.Value(t, settings.Proxy.SweepInterval()).Equal(30 * time.Minute)
	gt.Value(t, len(settings.Proxy.UseCaseOptions())).Equal(3)

	gt.Array(t, settings.Groups).Length(1).Required()
	group := settings.Groups[0]
	gt.Value(t, group.Tag).Equal("| sys")
	gt.Array(t, group.Members).Length(2).Required()
	gt.Array(t, group.Members[1].Tags).Length(2).Required()
	gt.Bool(t, group.Members[1].Tags[1].Regex).True()
}

func TestLoadSettings_Defaults(t *testing.T) {
	settings, err := config.NewAppConfigForTest("").Load()
	gt.NoError(t, err).Required()

	gt.Array(t, settings.Groups).Length(0)
	gt.Value(t, len(settings.Proxy.UseCaseOptions())).Equal(0)
	gt.Value(t, len(settings.Proxy.DiscordOptions())).Equal(0)
	gt.Value(t, settings.Proxy.SweepInterval()).Equal(worker.DefaultSweepInterval)
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name: "bad duration",
			content: `
[proxy]
notice_ttl = "soon"
`,
			wantErr: config.ErrInvalidDuration,
		},
		{
			name: "negative duration",
			content: `
[proxy]
cache_ttl = "-1s"
`,
			wantErr: config.ErrInvalidDuration,
		},
		{
			name: "group without name",
			content: `
[[group]]
tag = "x"
`,
			wantErr: config.ErrMissingName,
		},
		{
			name: "duplicate group",
			content: `
[[group]]
name = "a"

[[group]]
name = "a"
`,
			wantErr: config.ErrDuplicateGroup,
		},
		{
			name: "duplicate member",
			content: `
[[group]]
name = "a"

  [[group.member]]
  name = "m"

  [[group.member]]
  name = "m"
`,
			wantErr: config.ErrDuplicateMember,
		},
		{
			name: "broken regex tag",
			content: `
[[group]]
name = "a"

  [[group.member]]
  name = "m"

    [[group.member.tag]]
    prefix = "(("
    regex = true
`,
			wantErr: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadSettings(writeConfig(t, tt.content))
			gt.Error(t, err)
			gt.Bool(t, errors.Is(err, tt.wantErr)).True()
		})
	}
}

func TestLoadSettings_MissingFile(t *testing.T) {
	_, err := config.LoadSettings(filepath.Join(t.TempDir(), "missing.toml"))
	gt.Error(t, err)
}

func TestSettings_Seed(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	defer func() { _ = repo.Close() }()

	settings, err := config.LoadSettings(writeConfig(t, validConfig))
	gt.NoError(t, err).Required()

	gt.NoError(t, settings.Seed(ctx, repo)).Required()

	groups, err := repo.Group().ListByAccount(ctx, "4000")
	gt.NoError(t, err).Required()
	gt.Array(t, groups).Length(1).Required()
	groupID := groups[0].ID

	members, err := repo.Member().ListByGroup(ctx, groupID)
	gt.NoError(t, err).Required()
	gt.Array(t, members).Length(2).Required()
	memberIDs := map[string]string{}
	for _, m := range members {
		memberIDs[m.Name] = string(m.ID)
	}

	t.Run("seeding again keeps IDs", func(t *testing.T) {
		settings.Groups[0].Tag = "| system"
		gt.NoError(t, settings.Seed(ctx, repo)).Required()

		all, err := repo.Group().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(1).Required()
		gt.Value(t, all[0].ID).Equal(groupID)
		gt.Value(t, all[0].Tag).Equal("| system")

		members, err := repo.Member().ListByGroup(ctx, groupID)
		gt.NoError(t, err).Required()
		gt.Array(t, members).Length(2).Required()
		for _, m := range members {
			gt.Value(t, string(m.ID)).Equal(memberIDs[m.Name])
		}
	})
}
