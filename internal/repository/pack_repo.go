package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clearquest/internal/model"
)

// PackRepo handles MongoDB operations for follow-up packs
type PackRepo interface {
	Upsert(ctx context.Context, pack *model.FollowUpPack) error
	GetByPackID(ctx context.Context, packID string) (*model.FollowUpPack, error)
	List(ctx context.Context) ([]*model.FollowUpPack, error)
	Delete(ctx context.Context, packID string) error
}

type packRepo struct {
	collection *mongo.Collection
}

// NewPackRepo creates a new follow-up pack repository
func NewPackRepo(db *mongo.Database) PackRepo {
	return &packRepo{
		collection: db.Collection("followup_packs"),
	}
}

func (r *packRepo) Upsert(ctx context.Context, pack *model.FollowUpPack) error {
	if pack.CreatedAt.IsZero() {
		pack.CreatedAt = time.Now()
	}
	pack.UpdatedAt = time.Now()

	update := bson.M{"$set": bson.M{
		"packId":       pack.PackID,
		"title":        pack.Title,
		"categoryId":   pack.CategoryID,
		"fact_anchors": pack.FactAnchors,
		"questions":    pack.Questions,
		"createdAt":    pack.CreatedAt,
		"updatedAt":    pack.UpdatedAt,
	}}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"packId": pack.PackID}, update, opts)
	return err
}

func (r *packRepo) GetByPackID(ctx context.Context, packID string) (*model.FollowUpPack, error) {
	var pack model.FollowUpPack
	err := r.collection.FindOne(ctx, bson.M{"packId": packID}).Decode(&pack)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pack, nil
}

func (r *packRepo) List(ctx context.Context) ([]*model.FollowUpPack, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var packs []*model.FollowUpPack
	if err = cursor.All(ctx, &packs); err != nil {
		return nil, err
	}
	return packs, nil
}

func (r *packRepo) Delete(ctx context.Context, packID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"packId": packID})
	return err
}
