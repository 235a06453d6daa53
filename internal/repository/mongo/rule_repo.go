// internal/repository/mongo/rule_repo.go
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

const ruleCollectionName = "autoadjust_rules"

// mongoRuleRepository implements repository.RuleRepository.
type mongoRuleRepository struct {
	collection *mongo.Collection
}

// NewMongoRuleRepository creates a new AutoAdjustRule repository.
func NewMongoRuleRepository(db *mongo.Database) repository.RuleRepository {
	return &mongoRuleRepository{
		collection: db.Collection(ruleCollectionName),
	}
}

// Create inserts a new rule.
func (r *mongoRuleRepository) Create(ctx context.Context, rule *domain.AutoAdjustRule) (primitive.ObjectID, error) {
	if rule.ClientID == primitive.NilObjectID || rule.CreatedBy == primitive.NilObjectID || rule.Name == "" {
		return primitive.NilObjectID, errors.New("rule requires clientId, createdBy, and name")
	}
	rule.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	if rule.TriggerHistory == nil {
		rule.TriggerHistory = []domain.RuleTrigger{}
	}

	result, err := r.collection.InsertOne(ctx, rule)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted rule ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single rule by its ID.
func (r *mongoRuleRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AutoAdjustRule, error) {
	var rule domain.AutoAdjustRule
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&rule)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// GetByClient retrieves all rules scoped to a client, newest first.
func (r *mongoRuleRepository) GetByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.AutoAdjustRule, error) {
	return r.findRules(ctx, bson.M{"clientId": clientID})
}

// GetActiveByClient retrieves only the rules eligible for evaluation.
func (r *mongoRuleRepository) GetActiveByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.AutoAdjustRule, error) {
	return r.findRules(ctx, bson.M{"clientId": clientID, "isActive": true})
}

func (r *mongoRuleRepository) findRules(ctx context.Context, filter bson.M) ([]domain.AutoAdjustRule, error) {
	var rules []domain.AutoAdjustRule
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	// Return empty slice if no rules found (not an error)
	return rules, nil
}

// Update replaces the stored rule document. Trigger history is only ever
// appended to by the service layer before calling Update.
func (r *mongoRuleRepository) Update(ctx context.Context, rule *domain.AutoAdjustRule) error {
	if rule.ID == primitive.NilObjectID {
		return errors.New("rule ID is required for update")
	}
	rule.UpdatedAt = time.Now().UTC()

	filter := bson.M{"_id": rule.ID}
	result, err := r.collection.ReplaceOne(ctx, filter, rule)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a rule. The filter ensures the rule belongs to the trainer
// who created it.
func (r *mongoRuleRepository) Delete(ctx context.Context, id primitive.ObjectID, createdBy primitive.ObjectID) error {
	if id == primitive.NilObjectID || createdBy == primitive.NilObjectID {
		return errors.New("rule ID and creator ID are required for deletion")
	}

	filter := bson.M{"_id": id, "createdBy": createdBy}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		// Either the rule didn't exist, or it belongs to another trainer.
		return repository.ErrNotFound
	}
	return nil
}

// EnsureRuleIndexes creates necessary indexes. Call during startup.
func EnsureRuleIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "createdBy", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
