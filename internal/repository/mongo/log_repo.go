// internal/repository/mongo/log_repo.go
package mongo

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const logCollectionName = "nutrition_logs"

// mongoLogRepository implements repository.LogRepository.
type mongoLogRepository struct {
	collection *mongo.Collection
}

// NewMongoLogRepository creates a new NutritionLog repository.
func NewMongoLogRepository(db *mongo.Database) repository.LogRepository {
	return &mongoLogRepository{
		collection: db.Collection(logCollectionName),
	}
}

// Create inserts a new daily log entry.
func (r *mongoLogRepository) Create(ctx context.Context, entry *domain.NutritionLog) (primitive.ObjectID, error) {
	if entry.ClientID == primitive.NilObjectID || entry.Date.IsZero() {
		return primitive.NilObjectID, errors.New("log requires clientId and date")
	}
	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted log ID")
	}
	return insertedID, nil
}

// GetByClientDateRange retrieves a client's logs between start and end
// inclusive, ordered by date ascending — the order the trend evaluators
// expect.
func (r *mongoLogRepository) GetByClientDateRange(ctx context.Context, clientID primitive.ObjectID, start, end time.Time) ([]domain.NutritionLog, error) {
	var logs []domain.NutritionLog
	filter := bson.M{
		"clientId": clientID,
		"date":     bson.M{"$gte": start, "$lte": end},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	// Return empty slice if no logs found (not an error)
	return logs, nil
}

// EnsureLogIndexes creates necessary indexes. Call during startup.
func EnsureLogIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// The only query pattern: a client's logs over a window.
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
