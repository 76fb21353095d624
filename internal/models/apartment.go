package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Apartment struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LandlordID  primitive.ObjectID `bson:"landlordId" json:"landlordId"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	City        string             `bson:"city" json:"city"`
	Address     string             `bson:"address" json:"address"`
	RentMonthly float64            `bson:"rentMonthly" json:"rentMonthly"`
	Rooms       int                `bson:"rooms" json:"rooms"`
	SizeSqm     float64            `bson:"sizeSqm,omitempty" json:"sizeSqm,omitempty"`
	Available   bool               `bson:"available" json:"available"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
