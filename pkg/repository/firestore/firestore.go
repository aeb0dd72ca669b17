package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/interfaces"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = interfaces.ErrNotFound

type Firestore struct {
	client         *firestore.Client
	group          *groupRepository
	member         *memberRepository
	latch          *latchRepository
	endpoint       *endpointRepository
	proxiedMessage *proxiedMessageRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix namespaces every collection, mainly for tests
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.group.collection.prefix = prefix
		f.member.collection.prefix = prefix
		f.latch.collection.prefix = prefix
		f.endpoint.collection.prefix = prefix
		f.proxiedMessage.collection.prefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:         client,
		group:          &groupRepository{client: client, collection: collection{name: "groups"}},
		member:         &memberRepository{client: client, collection: collection{name: "members"}},
		latch:          &latchRepository{client: client, collection: collection{name: "latches"}},
		endpoint:       &endpointRepository{client: client, collection: collection{name: "endpoints"}},
		proxiedMessage: &proxiedMessageRepository{client: client, collection: collection{name: "proxied_messages"}},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Group() interfaces.GroupRepository {
	return f.group
}

func (f *Firestore) Member() interfaces.MemberRepository {
	return f.member
}

func (f *Firestore) Latch() interfaces.LatchRepository {
	return f.latch
}

func (f *Firestore) Endpoint() interfaces.EndpointRepository {
	return f.endpoint
}

func (f *Firestore) ProxiedMessage() interfaces.ProxiedMessageRepository {
	return f.proxiedMessage
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// collection resolves a collection name with the optional prefix
type collection struct {
	prefix string
	name   string
}

func (c collection) String() string {
	if c.prefix != "" {
		return c.prefix + "_" + c.name
	}
	return c.name
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
