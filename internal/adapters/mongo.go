package adapters

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore keeps kits as documents of one MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type mongoKit struct {
	ID        string    `bson:"_id"`
	Document  string    `bson:"document"`
	Version   string    `bson:"version"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// OpenMongo connects to uri and uses database.collection. An empty database
// selects "mediakit" and an empty collection "kits".
func OpenMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if database == "" {
		database = "mediakit"
	}
	if collection == "" {
		collection = "kits"
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{client: client, collection: client.Database(database).Collection(collection)}, nil
}

func (m *MongoStore) Put(ctx context.Context, rec Record) error {
	doc, err := json.Marshal(rec.Document)
	if err != nil {
		return fmt.Errorf("encode kit %s: %w", rec.ID, err)
	}
	kit := mongoKit{
		ID:        rec.ID,
		Document:  string(doc),
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt.UTC(),
		UpdatedAt: rec.UpdatedAt.UTC(),
	}
	_, err = m.collection.ReplaceOne(ctx, bson.M{"_id": rec.ID}, kit, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put kit %s: %w", rec.ID, err)
	}
	return nil
}

func (m *MongoStore) Get(ctx context.Context, id string) (Record, error) {
	var kit mongoKit
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&kit)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, kitNotFound(id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get kit %s: %w", id, err)
	}
	rec := Record{ID: kit.ID, Version: kit.Version, CreatedAt: kit.CreatedAt, UpdatedAt: kit.UpdatedAt}
	if err := json.Unmarshal([]byte(kit.Document), &rec.Document); err != nil {
		return Record{}, fmt.Errorf("decode kit %s: %w", id, err)
	}
	return rec, nil
}

func (m *MongoStore) List(ctx context.Context) ([]Summary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"document": 0})
	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list kits: %w", err)
	}
	defer cursor.Close(ctx)

	out := []Summary{}
	for cursor.Next(ctx) {
		var kit mongoKit
		if err := cursor.Decode(&kit); err != nil {
			return nil, err
		}
		out = append(out, Summary{ID: kit.ID, Version: kit.Version, UpdatedAt: kit.UpdatedAt})
	}
	return out, cursor.Err()
}

func (m *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete kit %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return kitNotFound(id)
	}
	return nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
