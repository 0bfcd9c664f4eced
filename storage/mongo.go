package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newsmint/types"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	// ErrNotFound is returned when no article matches the lookup
	ErrNotFound = errors.New("article not found")
	// ErrDuplicateURL is returned when an insert collides with the unique url index
	ErrDuplicateURL = errors.New("article url already stored")
	// ErrNotModified is returned when a conditional update matched nothing
	ErrNotModified = errors.New("article not modified")
)

// MongoStore keeps articles in a single MongoDB collection
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Connect opens a MongoDB client and verifies it with a ping
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// NewMongoStore wraps a connected client. The client is shared and owned by the caller.
func NewMongoStore(client *mongo.Client, database, collection string) *MongoStore {
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}
}

// EnsureIndexes creates the unique url index and the dag_address lookup index
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "url", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("url_unique"),
		},
		{
			Keys:    bson.D{{Key: "dag_address", Value: 1}},
			Options: options.Index().SetName("dag_address"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Ping checks that the primary is reachable
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// FindByURL returns the article stored under the exact url
func (s *MongoStore) FindByURL(ctx context.Context, url string) (*types.Article, error) {
	return s.findOne(ctx, bson.M{"url": url})
}

// FindByID returns the article with the given id
func (s *MongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*types.Article, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*types.Article, error) {
	var a types.Article
	err := s.collection.FindOne(ctx, filter).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find article: %w", err)
	}
	return &a, nil
}

// Insert stores a new article and returns its assigned id
func (s *MongoStore) Insert(ctx context.Context, a *types.Article) (primitive.ObjectID, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}

	res, err := s.collection.InsertOne(ctx, a)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, ErrDuplicateURL
		}
		return primitive.NilObjectID, fmt.Errorf("failed to insert article: %w", err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id, nil
}

// Count returns the number of stored articles
func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

// List returns a page of articles ordered by id (insertion order)
func (s *MongoStore) List(ctx context.Context, skip, limit int64) ([]*types.Article, error) {
	return s.find(ctx, bson.M{}, skip, limit)
}

// ListByAddress returns a page of articles submitted by address
func (s *MongoStore) ListByAddress(ctx context.Context, address string, skip, limit int64) ([]*types.Article, error) {
	return s.find(ctx, bson.M{"dag_address": address}, skip, limit)
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, skip, limit int64) ([]*types.Article, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer cursor.Close(ctx)

	articles := make([]*types.Article, 0, limit)
	if err := cursor.All(ctx, &articles); err != nil {
		return nil, fmt.Errorf("failed to decode articles: %w", err)
	}
	return articles, nil
}

// MarkMinted records the minting metadata on an article that has not been minted yet
func (s *MongoStore) MarkMinted(ctx context.Context, id primitive.ObjectID, address, tokenID string, at time.Time) error {
	filter := bson.M{"_id": id, "minted_by": nil}
	update := bson.M{"$set": bson.M{
		"minted_by":    address,
		"minted_at":    at.UTC(),
		"nft_token_id": tokenID,
	}}

	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}
	if res.ModifiedCount == 0 {
		return ErrNotModified
	}
	return nil
}
