package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/model"
)

type latchDocument struct {
	UserID   string `firestore:"user_id"`
	Scope    string `firestore:"scope"`
	Enabled  bool   `firestore:"enabled"`
	MemberID string `firestore:"member_id"`
}

type latchRepository struct {
	client     *firestore.Client
	collection collection
}

func (r *latchRepository) doc(userID, scope string) *firestore.DocumentRef {
	return r.client.Collection(r.collection.String()).Doc(string(model.NewLatchID(userID, scope)))
}

func (r *latchRepository) Get(ctx context.Context, userID, scope string) (*model.Latch, error) {
	snap, err := r.doc(userID, scope).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrNotFound, "latch not found", goerr.V("user_id", userID), goerr.V("scope", scope))
		}
		return nil, goerr.Wrap(err, "failed to get latch", goerr.V("user_id", userID), goerr.V("scope", scope))
	}

	var doc latchDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal latch", goerr.V("user_id", userID), goerr.V("scope", scope))
	}

	return &model.Latch{
		UserID:   doc.UserID,
		Scope:    doc.Scope,
		Enabled:  doc.Enabled,
		MemberID: model.MemberID(doc.MemberID),
	}, nil
}

func (r *latchRepository) Put(ctx context.Context, latch *model.Latch) error {
	if latch.UserID == "" || latch.Scope == "" {
		return goerr.New("latch user and scope are required", goerr.V("latch", latch))
	}

	doc := &latchDocument{
		UserID:   latch.UserID,
		Scope:    latch.Scope,
		Enabled:  latch.Enabled,
		MemberID: string(latch.MemberID),
	}
	if _, err := r.doc(latch.UserID, latch.Scope).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put latch", goerr.V("user_id", latch.UserID), goerr.V("scope", latch.Scope))
	}
	return nil
}

func (r *latchRepository) Delete(ctx context.Context, userID, scope string) error {
	ref := r.doc(userID, scope)
	if _, err := ref.Get(ctx); err != nil {
		if isNotFound(err) {
			return goerr.Wrap(ErrNotFound, "latch not found", goerr.V("user_id", userID), goerr.V("scope", scope))
		}
		return goerr.Wrap(err, "failed to get latch", goerr.V("user_id", userID), goerr.V("scope", scope))
	}

	if _, err := ref.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete latch", goerr.V("user_id", userID), goerr.V("scope", scope))
	}
	return nil
}
