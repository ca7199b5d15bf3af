package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clearquest/internal/model"
)

// TraceRepo handles MongoDB operations for decision traces
type TraceRepo interface {
	Insert(ctx context.Context, trace *model.DecisionTrace) error
	ListBySession(ctx context.Context, sessionID string) ([]*model.DecisionTrace, error)
	ListByIncident(ctx context.Context, incidentID string) ([]*model.DecisionTrace, error)
}

type traceRepo struct {
	collection *mongo.Collection
}

// NewTraceRepo creates a new decision trace repository
func NewTraceRepo(db *mongo.Database) TraceRepo {
	return &traceRepo{
		collection: db.Collection("decision_traces"),
	}
}

func (r *traceRepo) Insert(ctx context.Context, trace *model.DecisionTrace) error {
	if trace.CreatedAt.IsZero() {
		trace.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, trace)
	return err
}

func (r *traceRepo) ListBySession(ctx context.Context, sessionID string) ([]*model.DecisionTrace, error) {
	return r.list(ctx, bson.M{"sessionId": sessionID})
}

func (r *traceRepo) ListByIncident(ctx context.Context, incidentID string) ([]*model.DecisionTrace, error) {
	return r.list(ctx, bson.M{"incidentId": incidentID})
}

func (r *traceRepo) list(ctx context.Context, filter bson.M) ([]*model.DecisionTrace, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var traces []*model.DecisionTrace
	if err = cursor.All(ctx, &traces); err != nil {
		return nil, err
	}
	return traces, nil
}
