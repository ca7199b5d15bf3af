package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"clearquest/internal/model"
)

// FactModelRepo handles MongoDB operations for fact models
type FactModelRepo interface {
	Create(ctx context.Context, fm *model.FactModel) (string, error)
	GetByID(ctx context.Context, id string) (*model.FactModel, error)
	GetByCategory(ctx context.Context, categoryID string) (*model.FactModel, error)
	List(ctx context.Context) ([]*model.FactModel, error)
	Update(ctx context.Context, fm *model.FactModel) error
	Delete(ctx context.Context, id string) error
}

type factModelRepo struct {
	collection *mongo.Collection
}

// NewFactModelRepo creates a new fact model repository
func NewFactModelRepo(db *mongo.Database) FactModelRepo {
	return &factModelRepo{
		collection: db.Collection("fact_models"),
	}
}

func (r *factModelRepo) Create(ctx context.Context, fm *model.FactModel) (string, error) {
	fm.CreatedAt = time.Now()
	fm.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, fm)
	if err != nil {
		return "", err
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", nil
	}
	return oid.Hex(), nil
}

func (r *factModelRepo) GetByID(ctx context.Context, id string) (*model.FactModel, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var fm model.FactModel
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&fm)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	fm.ID = id
	return &fm, nil
}

func (r *factModelRepo) GetByCategory(ctx context.Context, categoryID string) (*model.FactModel, error) {
	var fm model.FactModel
	err := r.collection.FindOne(ctx, bson.M{"categoryId": categoryID}).Decode(&fm)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fm, nil
}

func (r *factModelRepo) List(ctx context.Context) ([]*model.FactModel, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var models []*model.FactModel
	if err = cursor.All(ctx, &models); err != nil {
		return nil, err
	}
	return models, nil
}

func (r *factModelRepo) Update(ctx context.Context, fm *model.FactModel) error {
	oid, err := primitive.ObjectIDFromHex(fm.ID)
	if err != nil {
		return err
	}

	fm.UpdatedAt = time.Now()
	update := bson.M{"$set": bson.M{
		"categoryId":          fm.CategoryID,
		"categoryLabel":       fm.CategoryLabel,
		"mandatoryFacts":      fm.MandatoryFacts,
		"optionalFacts":       fm.OptionalFacts,
		"severityFacts":       fm.SeverityFacts,
		"isReadyForAiProbing": fm.ReadyForAIProbing,
		"updatedAt":           fm.UpdatedAt,
	}}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *factModelRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
