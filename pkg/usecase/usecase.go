package usecase

import (
	"time"

	"github.com/secmon-lab/proxima/pkg/domain/interfaces"
	"github.com/secmon-lab/proxima/pkg/service/discord"
)

type UseCases struct {
	repo interfaces.Repository
	svc  discord.Service

	webhookName string
	noticeTTL   time.Duration
	cacheTTL    time.Duration
	now         func() time.Time

	Permission *PermissionResolver
	Identity   *IdentityResolver
	Latch      *LatchUseCase
	Content    *ContentPipeline
	Endpoint   *EndpointRegistry
	Proxy      *ProxyUseCase
	Reaction   *ReactionUseCase
	Reproxy    *ReproxyUseCase
	Info       *InfoUseCase
}

type Option func(*UseCases)

// WithWebhookName sets the name of webhooks owned by the proxy
func WithWebhookName(name string) Option {
	return func(uc *UseCases) {
		uc.webhookName = name
	}
}

// WithNoticeTTL sets how long rejection notices stay visible
func WithNoticeTTL(ttl time.Duration) Option {
	return func(uc *UseCases) {
		uc.noticeTTL = ttl
	}
}

// WithCacheTTL sets the lifetime of cached Discord objects and verdicts
func WithCacheTTL(ttl time.Duration) Option {
	return func(uc *UseCases) {
		uc.cacheTTL = ttl
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, svc discord.Service, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:        repo,
		svc:         svc,
		webhookName: DefaultWebhookName,
		noticeTTL:   DefaultNoticeTTL,
		cacheTTL:    DefaultCacheTTL,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Permission = NewPermissionResolver(svc, uc.cacheTTL, uc.now)
	uc.Identity = NewIdentityResolver(repo)
	uc.Latch = NewLatchUseCase(repo, uc.Identity)
	uc.Content = NewContentPipeline(svc, uc.noticeTTL)
	uc.Endpoint = NewEndpointRegistry(repo, svc, uc.Permission, uc.webhookName)
	uc.Proxy = NewProxyUseCase(repo, svc, uc.Permission, uc.Identity, uc.Latch, uc.Content, uc.Endpoint, uc.now)
	uc.Reaction = NewReactionUseCase(repo, svc, uc.Permission, uc.Endpoint)
	uc.Reproxy = NewReproxyUseCase(repo, svc, uc.Permission, uc.Latch, uc.Content, uc.Endpoint, uc.now)
	uc.Info = NewInfoUseCase(repo)

	return uc
}

// Close stops the cache timers
func (uc *UseCases) Close() {
	uc.Permission.Close()
}
