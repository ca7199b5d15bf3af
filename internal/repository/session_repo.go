package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"clearquest/internal/model"
)

// ErrVersionConflict is returned by AppendTranscript when another writer
// advanced the transcript version first. Callers re-read and retry.
var ErrVersionConflict = errors.New("transcript version conflict")

// SessionRepo handles MongoDB operations for interview sessions. Sessions
// are keyed by a caller-generated string ID rather than an ObjectID, so
// deterministic transcript entry IDs like "welcome-<sessionId>" stay stable.
type SessionRepo interface {
	Create(ctx context.Context, session *model.InterviewSession) error
	GetByID(ctx context.Context, id string) (*model.InterviewSession, error)
	List(ctx context.Context) ([]*model.InterviewSession, error)
	UpdateStatus(ctx context.Context, id string, status model.SessionStatus, endedAt *time.Time) error
	UpdateIncidents(ctx context.Context, id string, incidents []model.Incident) error
	// AppendTranscript compare-and-swaps the full transcript array against
	// fromVersion. Returns ErrVersionConflict if another writer got there
	// first; the caller re-reads the session and retries.
	AppendTranscript(ctx context.Context, id string, entries []model.TranscriptEntry, fromVersion int64) error
}

type sessionRepo struct {
	collection *mongo.Collection
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(db *mongo.Database) SessionRepo {
	return &sessionRepo{
		collection: db.Collection("interview_sessions"),
	}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.InterviewSession) error {
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	session.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, session)
	return err
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.InterviewSession, error) {
	var session model.InterviewSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	normalizeTranscript(&session)
	return &session, nil
}

func (r *sessionRepo) List(ctx context.Context) ([]*model.InterviewSession, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.InterviewSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	for _, s := range sessions {
		normalizeTranscript(s)
	}
	return sessions, nil
}

func (r *sessionRepo) UpdateStatus(ctx context.Context, id string, status model.SessionStatus, endedAt *time.Time) error {
	set := bson.M{"status": status, "updatedAt": time.Now()}
	if endedAt != nil {
		set["endedAt"] = endedAt
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

func (r *sessionRepo) UpdateIncidents(ctx context.Context, id string, incidents []model.Incident) error {
	update := bson.M{"$set": bson.M{
		"incidents": incidents,
		"updatedAt": time.Now(),
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *sessionRepo) AppendTranscript(ctx context.Context, id string, entries []model.TranscriptEntry, fromVersion int64) error {
	filter := bson.M{"_id": id, "transcriptVersion": fromVersion}
	update := bson.M{
		"$set": bson.M{
			"transcript_snapshot": entries,
			"updatedAt":           time.Now(),
		},
		"$inc": bson.M{"transcriptVersion": 1},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrVersionConflict
	}
	return nil
}

// normalizeTranscript migrates legacy message-type strings onto the closed
// enum at the store-read boundary. The original value is preserved in Meta
// when it does not map to a known variant.
func normalizeTranscript(s *model.InterviewSession) {
	for i := range s.Transcript {
		raw := string(s.Transcript[i].MessageType)
		mt := model.NormalizeMessageType(raw)
		if mt == model.MessageLegacy && raw != string(model.MessageLegacy) {
			if s.Transcript[i].Meta == nil {
				s.Transcript[i].Meta = make(map[string]any)
			}
			s.Transcript[i].Meta["legacyMessageType"] = raw
		}
		s.Transcript[i].MessageType = mt
	}
}
