// internal/repository/mongo/target_repo.go
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

const targetCollectionName = "nutrition_targets"

// mongoTargetRepository implements repository.TargetRepository.
// It holds the client in addition to the collection because CreateActive
// runs inside a session transaction.
type mongoTargetRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoTargetRepository creates a new NutritionTarget repository.
func NewMongoTargetRepository(client *mongo.Client, db *mongo.Database) repository.TargetRepository {
	return &mongoTargetRepository{
		client:     client,
		collection: db.Collection(targetCollectionName),
	}
}

// CreateActive inserts a new active target and deactivates every other
// target for the same client inside a single transaction. Two concurrent
// calls for the same client serialize on the transaction, so the
// single-active invariant holds without caller discipline.
func (r *mongoTargetRepository) CreateActive(ctx context.Context, target *domain.NutritionTarget) (primitive.ObjectID, error) {
	if target.ClientID == primitive.NilObjectID || target.CreatedBy == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("target requires clientId and createdBy")
	}

	target.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	target.CreatedAt = now
	target.UpdatedAt = now
	target.IsActive = true
	target.Version = 1
	if target.AdjustmentLog == nil {
		target.AdjustmentLog = []domain.TargetAdjustment{}
	}

	session, err := r.client.StartSession()
	if err != nil {
		return primitive.NilObjectID, err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		deactivate := bson.M{
			"clientId": target.ClientID,
			"isActive": true,
			"_id":      bson.M{"$ne": target.ID},
		}
		update := bson.M{"$set": bson.M{"isActive": false, "updatedAt": now}}
		if _, err := r.collection.UpdateMany(sc, deactivate, update); err != nil {
			return nil, err
		}
		return r.collection.InsertOne(sc, target)
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return target.ID, nil
}

// GetByID retrieves a single target by its ID.
func (r *mongoTargetRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.NutritionTarget, error) {
	var target domain.NutritionTarget
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&target)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &target, nil
}

// GetActiveByClient retrieves the client's currently active target.
func (r *mongoTargetRepository) GetActiveByClient(ctx context.Context, clientID primitive.ObjectID) (*domain.NutritionTarget, error) {
	var target domain.NutritionTarget
	filter := bson.M{"clientId": clientID, "isActive": true}
	err := r.collection.FindOne(ctx, filter).Decode(&target)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &target, nil
}

// GetHistoryByClient retrieves the client's targets, newest effective first.
func (r *mongoTargetRepository) GetHistoryByClient(ctx context.Context, clientID primitive.ObjectID, page, perPage int64) ([]domain.NutritionTarget, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	var targets []domain.NutritionTarget
	filter := bson.M{"clientId": clientID}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "effectiveDate", Value: -1}}).
		SetSkip((page - 1) * perPage).
		SetLimit(perPage)

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &targets); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	// Return empty slice if no targets found (not an error)
	return targets, nil
}

// GetDueForReview retrieves active targets whose next-review date has elapsed.
func (r *mongoTargetRepository) GetDueForReview(ctx context.Context, asOf time.Time) ([]domain.NutritionTarget, error) {
	var targets []domain.NutritionTarget
	filter := bson.M{
		"isActive":       true,
		"nextReviewDate": bson.M{"$lte": asOf},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "nextReviewDate", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// Update replaces the stored document, guarded by the optimistic version
// counter. Two concurrent appliers acting on the same target cannot
// silently overwrite each other: the second replace matches nothing and
// surfaces ErrConflict. The whole document (figures plus appended ledger
// entries) commits in one write, so no partial-adjustment state persists.
func (r *mongoTargetRepository) Update(ctx context.Context, target *domain.NutritionTarget) error {
	if target.ID == primitive.NilObjectID {
		return errors.New("target ID is required for update")
	}

	currentVersion := target.Version
	target.Version = currentVersion + 1
	target.UpdatedAt = time.Now().UTC()

	filter := bson.M{"_id": target.ID, "version": currentVersion}
	result, err := r.collection.ReplaceOne(ctx, filter, target)
	if err != nil {
		target.Version = currentVersion
		return err
	}
	if result.MatchedCount == 0 {
		target.Version = currentVersion
		// Distinguish a missing document from a stale version.
		if _, getErr := r.GetByID(ctx, target.ID); errors.Is(getErr, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	return nil
}

// EnsureTargetIndexes creates necessary indexes. Call during startup.
func EnsureTargetIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Partial unique index backs the single-active invariant at
			// the storage layer as well as in CreateActive.
			Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isActive": true}),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "effectiveDate", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "nextReviewDate", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
