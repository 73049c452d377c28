package db

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"linguahub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var MongoClient *mongo.Client
var MongoDatabase *mongo.Database
var PracticeRecordCollection *mongo.Collection

// GetCollection returns a collection by name
func GetCollection(collectionName string) *mongo.Collection {
	return MongoDatabase.Collection(collectionName)
}

// extractDBName parses the database name from the URI, defaulting to "linguahub"
func extractDBName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "linguahub"
	}
	if u.Path != "" && u.Path != "/" {
		return u.Path[1:] // Trim leading '/'
	}
	return "linguahub"
}

// ConnectMongoDB establishes a connection to MongoDB using the provided URI
func ConnectMongoDB(uri string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Verify connection with a ping
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	MongoClient = client
	dbName := extractDBName(uri)
	log.Printf("Using database: %s", dbName)

	MongoDatabase = client.Database(dbName)
	PracticeRecordCollection = MongoDatabase.Collection("practice_records")
	return nil
}

// Store adapts the Mongo collections to the narrow interfaces the services
// and controllers consume. Inserts are independent per request; Mongo handles
// concurrent appends without any cross-request locking here.
type Store struct{}

// AppendPracticeRecord saves one completed evaluation
func (Store) AppendPracticeRecord(ctx context.Context, record *models.PracticeRecord) error {
	if PracticeRecordCollection == nil {
		return fmt.Errorf("database not initialized")
	}
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	_, err := PracticeRecordCollection.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to insert practice record: %w", err)
	}
	return nil
}

// ListPracticeRecords returns the most recent practice records, newest first
func (Store) ListPracticeRecords(ctx context.Context, limit int64) ([]models.PracticeRecord, error) {
	if PracticeRecordCollection == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(limit)
	cursor, err := PracticeRecordCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []models.PracticeRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListPracticeRecordsByText returns the practice history for one study text
func (Store) ListPracticeRecordsByText(ctx context.Context, textID string) ([]models.PracticeRecord, error) {
	if PracticeRecordCollection == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := PracticeRecordCollection.Find(ctx, bson.M{"textId": textID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []models.PracticeRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
