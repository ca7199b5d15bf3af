package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clearquest/internal/model"
)

// DiscretionConfigKey is the well-known system_config key holding the
// discretion policy.
const DiscretionConfigKey = "discretion_config"

// ConfigRepo handles the system_config collection
type ConfigRepo interface {
	GetDiscretionConfig(ctx context.Context) (*model.DiscretionConfig, error)
	PutDiscretionConfig(ctx context.Context, cfg *model.DiscretionConfig) error
}

type configRepo struct {
	collection *mongo.Collection
}

type configDocument struct {
	Key       string                  `bson:"key"`
	Value     *model.DiscretionConfig `bson:"value"`
	UpdatedAt time.Time               `bson:"updatedAt"`
}

// NewConfigRepo creates a new system config repository
func NewConfigRepo(db *mongo.Database) ConfigRepo {
	return &configRepo{
		collection: db.Collection("system_config"),
	}
}

// GetDiscretionConfig returns the stored policy, or the defaults when no
// administrator has saved one yet. Absence is not an error.
func (r *configRepo) GetDiscretionConfig(ctx context.Context) (*model.DiscretionConfig, error) {
	var doc configDocument
	err := r.collection.FindOne(ctx, bson.M{"key": DiscretionConfigKey}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return model.DefaultDiscretionConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	if doc.Value == nil {
		return model.DefaultDiscretionConfig(), nil
	}
	return doc.Value, nil
}

func (r *configRepo) PutDiscretionConfig(ctx context.Context, cfg *model.DiscretionConfig) error {
	doc := configDocument{
		Key:       DiscretionConfigKey,
		Value:     cfg,
		UpdatedAt: time.Now(),
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"key": DiscretionConfigKey}, doc, opts)
	return err
}
