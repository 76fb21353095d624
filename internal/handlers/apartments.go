package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/omer3kale/SichrSpace-sub002/internal/middleware"
	"github.com/omer3kale/SichrSpace-sub002/internal/models"
)

type CreateApartmentRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	City        string  `json:"city" binding:"required"`
	Address     string  `json:"address" binding:"required"`
	RentMonthly float64 `json:"rentMonthly" binding:"required,gt=0"`
	Rooms       int     `json:"rooms" binding:"required,gt=0"`
	SizeSqm     float64 `json:"sizeSqm"`
}

// ListApartments is the public browsing endpoint. Deliberately not rate
// limited.
func ListApartments(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		filter := bson.M{"available": true}
		if city := strings.TrimSpace(c.Query("city")); city != "" {
			filter["city"] = city
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		opts := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := db.Collection("apartments").Find(ctx, filter, opts)
		if err != nil {
			log.Error().Err(err).Msg("apartment list failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		apartments := make([]models.Apartment, 0)
		if err := cursor.All(ctx, &apartments); err != nil {
			log.Error().Err(err).Msg("apartment decode failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"apartments": apartments,
			"page":       page,
			"limit":      limit,
		})
	}
}

// CreateApartment publishes a listing. Landlords only.
func CreateApartment(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.PrincipalFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req CreateApartmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		now := time.Now()
		apartment := models.Apartment{
			ID:          primitive.NewObjectID(),
			LandlordID:  principal.UserID,
			Title:       strings.TrimSpace(req.Title),
			Description: strings.TrimSpace(req.Description),
			City:        strings.TrimSpace(req.City),
			Address:     strings.TrimSpace(req.Address),
			RentMonthly: req.RentMonthly,
			Rooms:       req.Rooms,
			SizeSqm:     req.SizeSqm,
			Available:   true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := db.Collection("apartments").InsertOne(ctx, apartment); err != nil {
			log.Error().Err(err).Msg("apartment insert failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		c.JSON(http.StatusCreated, apartment)
	}
}
