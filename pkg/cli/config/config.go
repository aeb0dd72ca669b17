package config

import (
	"context"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/proxima/pkg/domain/interfaces"
	"github.com/secmon-lab/proxima/pkg/domain/model"
	"github.com/secmon-lab/proxima/pkg/service/discord"
	"github.com/secmon-lab/proxima/pkg/service/worker"
	"github.com/secmon-lab/proxima/pkg/usecase"
	"github.com/secmon-lab/proxima/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// AppConfig holds the path of the optional TOML configuration file
type AppConfig struct {
	path string
}

// Flags returns CLI flags for the configuration file
func (a *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to TOML configuration file (proxy tuning and seed groups)",
			Sources:     cli.EnvVars("PROXIMA_CONFIG"),
			Destination: &a.path,
		},
	}
}

// Load reads the configuration file. An empty path yields the defaults.
func (a *AppConfig) Load() (*Settings, error) {
	if a.path == "" {
		return &Settings{}, nil
	}
	return LoadSettings(a.path)
}

// Settings is the content of the TOML configuration file
type Settings struct {
	Proxy  Proxy   `toml:"proxy"`
	Groups []Group `toml:"group"`
}

// Proxy tunes the proxy pipeline. Empty values keep the defaults.
type Proxy struct {
	WebhookName    string `toml:"webhook_name"`
	NoticeTTL      string `toml:"notice_ttl"`
	CacheTTL       string `toml:"cache_ttl"`
	RequestTimeout string `toml:"request_timeout"`
	SweepInterval  string `toml:"sweep_interval"`
}

// Group is a seed group
type Group struct {
	Name                string   `toml:"name"`
	Tag                 string   `toml:"tag"`
	AvatarURL           string   `toml:"avatar_url"`
	Accounts            []string `toml:"accounts"`
	ChannelRestrictions []string `toml:"channel_restrictions"`
	Members             []Member `toml:"member"`
}

// Member is a seed member
type Member struct {
	Name      string     `toml:"name"`
	AvatarURL string     `toml:"avatar_url"`
	Tags      []ProxyTag `toml:"tag"`
}

// ProxyTag is a seed proxy tag
type ProxyTag struct {
	Prefix        string `toml:"prefix"`
	Suffix        string `toml:"suffix"`
	Regex         bool   `toml:"regex"`
	CaseSensitive bool   `toml:"case_sensitive"`
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, goerr.Wrap(ErrInvalidDuration, "failed to parse duration",
			goerr.V("key", key), goerr.V("value", value), goerr.V("error", err.Error()))
	}
	if d <= 0 {
		return 0, goerr.Wrap(ErrInvalidDuration, "duration must be positive",
			goerr.V("key", key), goerr.V("value", value))
	}
	return d, nil
}

// Validate checks durations and names
func (p *Proxy) Validate() error {
	for key, value := range map[string]string{
		"notice_ttl":      p.NoticeTTL,
		"cache_ttl":       p.CacheTTL,
		"request_timeout": p.RequestTimeout,
		"sweep_interval":  p.SweepInterval,
	} {
		if _, err := parseDuration(key, value); err != nil {
			return err
		}
	}
	return nil
}

// UseCaseOptions converts the proxy section into usecase options
func (p *Proxy) UseCaseOptions() []usecase.Option {
	var opts []usecase.Option
	if p.WebhookName != "" {
		opts = append(opts, usecase.WithWebhookName(p.WebhookName))
	}
	if d, _ := parseDuration("notice_ttl", p.NoticeTTL); d > 0 {
		opts = append(opts, usecase.WithNoticeTTL(d))
	}
	if d, _ := parseDuration("cache_ttl", p.CacheTTL); d > 0 {
		opts = append(opts, usecase.WithCacheTTL(d))
	}
	return opts
}

// DiscordOptions converts the proxy section into Discord service options
func (p *Proxy) DiscordOptions() []discord.Option {
	if d, _ := parseDuration("request_timeout", p.RequestTimeout); d > 0 {
		return []discord.Option{discord.WithRequestTimeout(d)}
	}
	return nil
}

// SweepInterval returns the configured sweep interval or the default
func (p *Proxy) SweepInterval() time.Duration {
	if d, _ := parseDuration("sweep_interval", p.SweepInterval); d > 0 {
		return d
	}
	return worker.DefaultSweepInterval
}

// Validate checks the seed group and its members
func (g *Group) Validate() error {
	if g.Name == "" {
		return goerr.Wrap(ErrMissingName, "group name is required")
	}

	names := make(map[string]bool)
	for i, m := range g.Members {
		if m.Name == "" {
			return goerr.Wrap(ErrMissingName, "member name is required",
				goerr.V(GroupNameKey, g.Name), goerr.V(MemberIndexKey, i))
		}
		if names[m.Name] {
			return goerr.Wrap(ErrDuplicateMember, "member names must be unique in a group",
				goerr.V(GroupNameKey, g.Name), goerr.V(MemberNameKey, m.Name))
		}
		names[m.Name] = true

		member := m.toModel(model.MemberID("seed"), model.GroupID("seed"))
		if err := member.Validate(); err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid member",
				goerr.V(GroupNameKey, g.Name), goerr.V(MemberNameKey, m.Name), goerr.V("error", err.Error()))
		}
	}
	return nil
}

// Validate checks the whole file
func (s *Settings) Validate() error {
	if err := s.Proxy.Validate(); err != nil {
		return goerr.Wrap(err, "invalid proxy section")
	}

	names := make(map[string]bool)
	for i, g := range s.Groups {
		if err := g.Validate(); err != nil {
			return goerr.Wrap(err, "invalid group", goerr.V(GroupIndexKey, i))
		}
		if names[g.Name] {
			return goerr.Wrap(ErrDuplicateGroup, "group names must be unique", goerr.V(GroupNameKey, g.Name))
		}
		names[g.Name] = true
	}
	return nil
}

// LoadSettings loads the configuration from a TOML file
func LoadSettings(path string) (*Settings, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var settings Settings
	if err := toml.Unmarshal(data, &settings); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML config", goerr.V(ConfigPathKey, path))
	}

	if err := settings.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &settings, nil
}

func (m Member) toModel(id model.MemberID, groupID model.GroupID) *model.Member {
	tags := make([]model.ProxyTag, len(m.Tags))
	for i, t := range m.Tags {
		tags[i] = model.ProxyTag{
			Prefix:        t.Prefix,
			Suffix:        t.Suffix,
			Regex:         t.Regex,
			CaseSensitive: t.CaseSensitive,
		}
	}
	return &model.Member{
		ID:        id,
		GroupID:   groupID,
		Name:      m.Name,
		AvatarURL: m.AvatarURL,
		ProxyTags: tags,
	}
}

// Seed writes the configured groups and members into repo. Existing
// records are matched by name and updated in place, so IDs stay stable
// across restarts. Records absent from the file are left untouched.
func (s *Settings) Seed(ctx context.Context, repo interfaces.Repository) error {
	if len(s.Groups) == 0 {
		return nil
	}

	existing, err := repo.Group().List(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to list groups")
	}
	byName := make(map[string]*model.Group, len(existing))
	for _, g := range existing {
		byName[g.Name] = g
	}

	for _, g := range s.Groups {
		group := &model.Group{
			Name:                g.Name,
			Tag:                 g.Tag,
			AvatarURL:           g.AvatarURL,
			Accounts:            g.Accounts,
			ChannelRestrictions: g.ChannelRestrictions,
		}
		if old, ok := byName[g.Name]; ok {
			group.ID = old.ID
			group.CreatedAt = old.CreatedAt
		}

		saved, err := repo.Group().Put(ctx, group)
		if err != nil {
			return goerr.Wrap(err, "failed to put group", goerr.V(GroupNameKey, g.Name))
		}

		if err := seedMembers(ctx, repo, saved.ID, g.Members); err != nil {
			return err
		}

		logging.From(ctx).Info("seeded group",
			"group_id", saved.ID,
			"name", saved.Name,
			"members", len(g.Members),
		)
	}

	return nil
}

func seedMembers(ctx context.Context, repo interfaces.Repository, groupID model.GroupID, members []Member) error {
	existing, err := repo.Member().ListByGroup(ctx, groupID)
	if err != nil {
		return goerr.Wrap(err, "failed to list members", goerr.V("group_id", groupID))
	}
	byName := make(map[string]*model.Member, len(existing))
	for _, m := range existing {
		byName[m.Name] = m
	}

	for _, m := range members {
		member := m.toModel("", groupID)
		if old, ok := byName[m.Name]; ok {
			member.ID = old.ID
			member.CreatedAt = old.CreatedAt
		}
		if _, err := repo.Member().Put(ctx, member); err != nil {
			return goerr.Wrap(err, "failed to put member",
				goerr.V("group_id", groupID), goerr.V(MemberNameKey, m.Name))
		}
	}
	return nil
}
