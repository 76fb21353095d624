package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/omer3kale/SichrSpace-sub002/internal/auth"
	"github.com/omer3kale/SichrSpace-sub002/internal/middleware"
	"github.com/omer3kale/SichrSpace-sub002/internal/models"
)

type RegisterRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Phone     string `json:"phone"`
	Role      string `json:"role" binding:"required,oneof=tenant landlord"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type LoginResponseUser struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

func loginResponseUser(user *models.User) LoginResponseUser {
	return LoginResponseUser{
		ID:        user.ID.Hex(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role,
	}
}

// Register creates an account and signs the new user straight in with a
// token pair.
func Register(db *mongo.Database, issuer *auth.Issuer, store *auth.RefreshTokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error().Err(err).Msg("password hash failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "password hash failed"})
			return
		}

		now := time.Now()
		user := models.User{
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
			Email:        email,
			Phone:        strings.TrimSpace(req.Phone),
			PasswordHash: string(hash),
			Role:         req.Role,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("users").InsertOne(ctx, user)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
				return
			}
			log.Error().Err(err).Msg("register insert failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		user.ID, _ = res.InsertedID.(primitive.ObjectID)

		tokens, ok := issueTokenPair(c, issuer, store, &user)
		if !ok {
			return
		}

		log.Info().Str("email", email).Str("role", req.Role).Msg("user registered")
		c.JSON(http.StatusCreated, gin.H{
			"accessToken":  tokens.AccessToken,
			"refreshToken": tokens.RefreshToken,
			"expiresIn":    tokens.ExpiresIn,
			"user":         loginResponseUser(&user),
		})
	}
}

// Login verifies credentials and returns an access/refresh token pair.
func Login(db *mongo.Database, issuer *auth.Issuer, store *auth.RefreshTokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
			if !errors.Is(err, mongo.ErrNoDocuments) {
				log.Error().Err(err).Msg("login user lookup failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		if !user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "user is inactive"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			log.Info().Str("email", email).Msg("login with invalid credentials")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		tokens, ok := issueTokenPair(c, issuer, store, &user)
		if !ok {
			return
		}

		log.Info().Str("email", email).Msg("login succeeded")
		c.JSON(http.StatusOK, gin.H{
			"accessToken":  tokens.AccessToken,
			"refreshToken": tokens.RefreshToken,
			"expiresIn":    tokens.ExpiresIn,
			"user":         loginResponseUser(&user),
		})
	}
}

// Refresh rotates the presented refresh token: the old record is revoked and
// a fresh pair is returned. A replayed token revokes every session of its
// user before rejecting the call.
func Refresh(db *mongo.Database, issuer *auth.Issuer, store *auth.RefreshTokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		newRefresh, record, err := store.Rotate(ctx, strings.TrimSpace(req.RefreshToken))
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenRevoked):
				// Replay of a rotated token: treat as compromise and cut
				// every session of that user.
				revoked, revokeErr := store.RevokeAll(ctx, record.UserID)
				if revokeErr != nil {
					log.Error().Err(revokeErr).Msg("revoke-all after replay failed")
				}
				log.Warn().Str("user", record.UserID.Hex()).Int64("revoked", revoked).Msg("refresh token replay detected")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			case errors.Is(err, auth.ErrExpiredToken):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token expired"})
			case errors.Is(err, auth.ErrTokenNotFound):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			default:
				log.Error().Err(err).Msg("refresh rotation failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			}
			return
		}

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": record.UserID}).Decode(&user); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if !user.IsActive {
			if _, err := store.RevokeAll(ctx, user.ID); err != nil {
				log.Error().Err(err).Msg("revoke-all for inactive user failed")
			}
			c.JSON(http.StatusForbidden, gin.H{"error": "user is inactive"})
			return
		}

		accessToken, expiresAt, err := issuer.IssueAccessToken(user.ID.Hex(), user.Role)
		if err != nil {
			log.Error().Err(err).Msg("access token generation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"accessToken":  accessToken,
			"refreshToken": newRefresh,
			"expiresIn":    int64(time.Until(expiresAt).Seconds()),
			"user":         loginResponseUser(&user),
		})
	}
}

// Logout revokes every refresh token of the caller. Requires authentication.
func Logout(store *auth.RefreshTokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.PrincipalFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		revoked, err := store.RevokeAll(ctx, principal.UserID)
		if err != nil {
			log.Error().Err(err).Msg("logout revoke failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		log.Info().Str("user", principal.UserID.Hex()).Int64("revoked", revoked).Msg("logged out")
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

// GetMe returns the authenticated user's account.
func GetMe(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.PrincipalFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": principal.UserID}).Decode(&user); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

type tokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

func issueTokenPair(c *gin.Context, issuer *auth.Issuer, store *auth.RefreshTokenStore, user *models.User) (*tokenPair, bool) {
	accessToken, expiresAt, err := issuer.IssueAccessToken(user.ID.Hex(), user.Role)
	if err != nil {
		log.Error().Err(err).Msg("access token generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return nil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	refreshToken, _, err := store.Issue(ctx, user.ID, c.Request.UserAgent())
	if err != nil {
		log.Error().Err(err).Msg("refresh token generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return nil, false
	}

	return &tokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(time.Until(expiresAt).Seconds()),
	}, true
}
