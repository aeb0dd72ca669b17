package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/model"
	"google.golang.org/api/iterator"
)

type memberDocument struct {
	ID        string             `firestore:"id"`
	GroupID   string             `firestore:"group_id"`
	Name      string             `firestore:"name"`
	AvatarURL string             `firestore:"avatar_url"`
	ProxyTags []proxyTagDocument `firestore:"proxy_tags"`
	CreatedAt time.Time          `firestore:"created_at"`
}

type proxyTagDocument struct {
	Prefix        string `firestore:"prefix"`
	Suffix        string `firestore:"suffix"`
	Regex         bool   `firestore:"regex"`
	CaseSensitive bool   `firestore:"case_sensitive"`
}

type memberRepository struct {
	client     *firestore.Client
	collection collection
}

func memberToDocument(m *model.Member) *memberDocument {
	doc := &memberDocument{
		ID:        string(m.ID),
		GroupID:   string(m.GroupID),
		Name:      m.Name,
		AvatarURL: m.AvatarURL,
		ProxyTags: make([]proxyTagDocument, len(m.ProxyTags)),
		CreatedAt: m.CreatedAt,
	}
	for i, tag := range m.ProxyTags {
		doc.ProxyTags[i] = proxyTagDocument(tag)
	}
	return doc
}

func memberToModel(doc *memberDocument) *model.Member {
	m := &model.Member{
		ID:        model.MemberID(doc.ID),
		GroupID:   model.GroupID(doc.GroupID),
		Name:      doc.Name,
		AvatarURL: doc.AvatarURL,
		CreatedAt: doc.CreatedAt,
	}
	for _, tag := range doc.ProxyTags {
		m.ProxyTags = append(m.ProxyTags, model.ProxyTag(tag))
	}
	return m
}

func (r *memberRepository) Put(ctx context.Context, member *model.Member) (*model.Member, error) {
	stored := *member
	if stored.ID == "" {
		stored.ID = model.NewMemberID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if err := stored.Validate(); err != nil {
		return nil, err
	}

	doc := memberToDocument(&stored)
	if _, err := r.client.Collection(r.collection.String()).Doc(doc.ID).Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to put member", goerr.V("id", doc.ID))
	}
	return memberToModel(doc), nil
}

func (r *memberRepository) Get(ctx context.Context, id model.MemberID) (*model.Member, error) {
	snap, err := r.client.Collection(r.collection.String()).Doc(string(id)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrNotFound, "member not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get member", goerr.V("id", id))
	}

	var doc memberDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal member", goerr.V("id", id))
	}
	return memberToModel(&doc), nil
}

func (r *memberRepository) ListByGroup(ctx context.Context, groupID model.GroupID) ([]*model.Member, error) {
	iter := r.client.Collection(r.collection.String()).
		Where("group_id", "==", string(groupID)).
		OrderBy("created_at", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var members []*model.Member
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate members", goerr.V("group_id", groupID))
		}

		var doc memberDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal member", goerr.V("doc_id", snap.Ref.ID))
		}
		members = append(members, memberToModel(&doc))
	}

	return members, nil
}

func (r *memberRepository) Delete(ctx context.Context, id model.MemberID) error {
	ref := r.client.Collection(r.collection.String()).Doc(string(id))
	if _, err := ref.Get(ctx); err != nil {
		if isNotFound(err) {
			return goerr.Wrap(ErrNotFound, "member not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get member", goerr.V("id", id))
	}

	if _, err := ref.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete member", goerr.V("id", id))
	}
	return nil
}

func sortByCreatedAt[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).Before(createdAt(items[j]))
	})
}
