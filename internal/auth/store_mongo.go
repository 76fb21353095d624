package auth

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/omer3kale/SichrSpace-sub002/internal/models"
)

// MongoRefreshTokenRepository persists refresh token records in the
// refresh_tokens collection. The unique index on tokenHash (see
// database.EnsureRefreshTokenIndexes) backs the single-use guarantee.
type MongoRefreshTokenRepository struct {
	collection *mongo.Collection
}

func NewMongoRefreshTokenRepository(db *mongo.Database) *MongoRefreshTokenRepository {
	return &MongoRefreshTokenRepository{collection: db.Collection("refresh_tokens")}
}

func (r *MongoRefreshTokenRepository) Insert(ctx context.Context, record *models.RefreshToken) error {
	_, err := r.collection.InsertOne(ctx, record)
	return err
}

func (r *MongoRefreshTokenRepository) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var record models.RefreshToken
	err := r.collection.FindOne(ctx, bson.M{"tokenHash": hash}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// RevokeByHash sets revokedAt on the record iff it is not set yet. The
// filter and update run as one atomic document operation, so of any number
// of concurrent callers exactly one sees a match.
func (r *MongoRefreshTokenRepository) RevokeByHash(ctx context.Context, hash string, at time.Time) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"tokenHash": hash, "revokedAt": nil},
		bson.M{"$set": bson.M{"revokedAt": at}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID primitive.ObjectID, at time.Time) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"userId": userID, "revokedAt": nil},
		bson.M{"$set": bson.M{"revokedAt": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoRefreshTokenRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"$or": bson.A{
			bson.M{"revokedAt": bson.M{"$ne": nil, "$lt": cutoff}},
			bson.M{"expiresAt": bson.M{"$lt": cutoff}},
		},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
