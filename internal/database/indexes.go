package database

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}

	_, err := db.Collection("users").Indexes().CreateOne(ctx, emailIndex)
	if err != nil {
		log.Error().Err(err).Msg("users email index")
		return err
	}
	return nil
}

// EnsureRefreshTokenIndexes creates the indexes the token store relies on.
// tokenHash must stay unique: together with the revokedAt compare-and-swap
// it gives a rotation race exactly one winner.
func EnsureRefreshTokenIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tokenHash", Value: 1}},
			Options: options.Index().
				SetName("tokenHash_unique").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("userId_index"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("expiresAt_index"),
		},
	}

	_, err := db.Collection("refresh_tokens").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Error().Err(err).Msg("refresh_tokens indexes")
		return err
	}
	return nil
}

func EnsureApartmentIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cityIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "city", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("city_createdAt"),
	}

	_, err := db.Collection("apartments").Indexes().CreateOne(ctx, cityIndex)
	if err != nil {
		log.Error().Err(err).Msg("apartments city index")
		return err
	}
	return nil
}
