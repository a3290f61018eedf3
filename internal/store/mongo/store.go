// Package mongo persists accepted survey answers to MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Answer is one stored survey response.
type Answer struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	CallID     string             `bson:"call_id" json:"call_id"`
	QuestionID string             `bson:"question_id" json:"question_id"`
	Answer     string             `bson:"answer" json:"answer"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// Config selects the database and collection.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Store appends accepted answers to a single collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo: URI required")
	}
	if cfg.Database == "" {
		cfg.Database = "nhts_survey"
	}
	if cfg.Collection == "" {
		cfg.Collection = "responses"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Store{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Record appends one accepted answer.
func (s *Store) Record(ctx context.Context, callID, questionID, answer string) error {
	doc := Answer{
		CallID:     callID,
		QuestionID: questionID,
		Answer:     answer,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: insert response: %w", err)
	}
	return nil
}

// ListByCall returns all stored answers for a call in insertion order.
func (s *Store) ListByCall(ctx context.Context, callID string) ([]Answer, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"call_id": callID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: find responses: %w", err)
	}
	defer cursor.Close(ctx)

	var answers []Answer
	if err := cursor.All(ctx, &answers); err != nil {
		return nil, fmt.Errorf("mongo: decode responses: %w", err)
	}
	return answers, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
