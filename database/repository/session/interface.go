package sessionRepo

import (
	"context"

	"luxride/database"
	"luxride/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// SessionRepository mirrors booking sessions to MongoDB. The live
// conversation is owned by the in-memory store; this collection is the
// durable record and the restart warm-up source.
type SessionRepository interface {
	Persist(ctx context.Context, session *models.BookingSession) error
	LoadActiveSessions(ctx context.Context) ([]models.BookingSession, error)
	GetByBookingID(ctx context.Context, bookingID string) (*models.BookingSession, error)
	GetByConfirmationID(ctx context.Context, confirmationID string) (*models.BookingSession, error)
}

type mongoSessionRepo struct {
	coll *mongo.Collection
}

// NewMongoSessionRepo returns a SessionRepository backed by MongoDB.
func NewMongoSessionRepo() SessionRepository {
	db := database.MongoClient.Database("luxride")
	return &mongoSessionRepo{
		coll: db.Collection("booking_sessions"),
	}
}
