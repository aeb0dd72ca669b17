package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/model"
	"google.golang.org/api/iterator"
)

type groupDocument struct {
	ID                  string    `firestore:"id"`
	Name                string    `firestore:"name"`
	Tag                 string    `firestore:"tag"`
	AvatarURL           string    `firestore:"avatar_url"`
	Accounts            []string  `firestore:"accounts"`
	ChannelRestrictions []string  `firestore:"channel_restrictions"`
	CreatedAt           time.Time `firestore:"created_at"`
}

type groupRepository struct {
	client     *firestore.Client
	collection collection
}

func groupToDocument(g *model.Group) *groupDocument {
	return &groupDocument{
		ID:                  string(g.ID),
		Name:                g.Name,
		Tag:                 g.Tag,
		AvatarURL:           g.AvatarURL,
		Accounts:            g.Accounts,
		ChannelRestrictions: g.ChannelRestrictions,
		CreatedAt:           g.CreatedAt,
	}
}

func groupToModel(doc *groupDocument) *model.Group {
	return &model.Group{
		ID:                  model.GroupID(doc.ID),
		Name:                doc.Name,
		Tag:                 doc.Tag,
		AvatarURL:           doc.AvatarURL,
		Accounts:            doc.Accounts,
		ChannelRestrictions: doc.ChannelRestrictions,
		CreatedAt:           doc.CreatedAt,
	}
}

func (r *groupRepository) Put(ctx context.Context, group *model.Group) (*model.Group, error) {
	stored := *group
	if stored.ID == "" {
		stored.ID = model.NewGroupID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if err := stored.Validate(); err != nil {
		return nil, err
	}

	doc := groupToDocument(&stored)
	if _, err := r.client.Collection(r.collection.String()).Doc(doc.ID).Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to put group", goerr.V("id", doc.ID))
	}
	return groupToModel(doc), nil
}

func (r *groupRepository) Get(ctx context.Context, id model.GroupID) (*model.Group, error) {
	snap, err := r.client.Collection(r.collection.String()).Doc(string(id)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrNotFound, "group not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get group", goerr.V("id", id))
	}

	var doc groupDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal group", goerr.V("id", id))
	}
	return groupToModel(&doc), nil
}

func (r *groupRepository) List(ctx context.Context) ([]*model.Group, error) {
	return r.query(ctx, r.client.Collection(r.collection.String()).OrderBy("created_at", firestore.Asc))
}

func (r *groupRepository) ListByAccount(ctx context.Context, userID string) ([]*model.Group, error) {
	return r.query(ctx, r.client.Collection(r.collection.String()).Where("accounts", "array-contains", userID))
}

func (r *groupRepository) query(ctx context.Context, q firestore.Query) ([]*model.Group, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	groups := []*model.Group{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate groups")
		}

		var doc groupDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal group", goerr.V("doc_id", snap.Ref.ID))
		}
		groups = append(groups, groupToModel(&doc))
	}

	sortByCreatedAt(groups, func(g *model.Group) time.Time { return g.CreatedAt })
	return groups, nil
}

func (r *groupRepository) Delete(ctx context.Context, id model.GroupID) error {
	ref := r.client.Collection(r.collection.String()).Doc(string(id))
	if _, err := ref.Get(ctx); err != nil {
		if isNotFound(err) {
			return goerr.Wrap(ErrNotFound, "group not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get group", goerr.V("id", id))
	}

	if _, err := ref.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete group", goerr.V("id", id))
	}
	return nil
}
