package interfaces

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/model"
)

// ErrNotFound is returned by every repository when the requested record
// does not exist
var ErrNotFound = goerr.New("not found")

// Repository defines the interface for data persistence
type Repository interface {
	Group() GroupRepository
	Member() MemberRepository
	Latch() LatchRepository
	Endpoint() EndpointRepository
	ProxiedMessage() ProxiedMessageRepository

	Close() error
}

// GroupRepository persists groups
type GroupRepository interface {
	// Put creates or replaces a group. ID and CreatedAt are filled when empty.
	Put(ctx context.Context, group *model.Group) (*model.Group, error)
	Get(ctx context.Context, id model.GroupID) (*model.Group, error)
	List(ctx context.Context) ([]*model.Group, error)

	// ListByAccount returns the groups whose accounts contain userID
	ListByAccount(ctx context.Context, userID string) ([]*model.Group, error)

	Delete(ctx context.Context, id model.GroupID) error
}

// MemberRepository persists members
type MemberRepository interface {
	// Put creates or replaces a member. ID and CreatedAt are filled when empty.
	Put(ctx context.Context, member *model.Member) (*model.Member, error)
	Get(ctx context.Context, id model.MemberID) (*model.Member, error)

	// ListByGroup returns the members of a group in creation order
	ListByGroup(ctx context.Context, groupID model.GroupID) ([]*model.Member, error)

	Delete(ctx context.Context, id model.MemberID) error
}

// LatchRepository persists autoproxy state
type LatchRepository interface {
	Get(ctx context.Context, userID, scope string) (*model.Latch, error)
	Put(ctx context.Context, latch *model.Latch) error
	Delete(ctx context.Context, userID, scope string) error
}

// EndpointRepository persists channel to webhook mappings
type EndpointRepository interface {
	Get(ctx context.Context, channelID string) (*model.Endpoint, error)
	Put(ctx context.Context, endpoint *model.Endpoint) error
	Delete(ctx context.Context, channelID string) error
}

// ProxiedMessageRepository persists links between original and proxied
// messages
type ProxiedMessageRepository interface {
	Put(ctx context.Context, msg *model.ProxiedMessage) error
	Get(ctx context.Context, proxyID string) (*model.ProxiedMessage, error)

	// Latest returns the newest record of authorID in channelID
	Latest(ctx context.Context, authorID, channelID string) (*model.ProxiedMessage, error)

	Delete(ctx context.Context, proxyID string) error

	// DeleteExpired removes every record whose expiry is at or before now
	// and returns how many were removed
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
