package sessionRepo

import (
	"context"
	"errors"

	"luxride/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Persist upserts the full session record keyed by bookingId.
func (r *mongoSessionRepo) Persist(ctx context.Context, session *models.BookingSession) error {
	filter := bson.M{"bookingId": session.BookingID}
	update := bson.M{"$set": session}
	opts := options.Update().SetUpsert(true)

	_, err := r.coll.UpdateOne(ctx, filter, update, opts)
	return err
}

// LoadActiveSessions returns every pending session, for warming the
// in-memory store after a restart. The customer index is rebuilt from the
// scan by the caller.
func (r *mongoSessionRepo) LoadActiveSessions(ctx context.Context) ([]models.BookingSession, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"status": models.BookingStatusPending})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []models.BookingSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetByBookingID returns one session record by its booking id.
func (r *mongoSessionRepo) GetByBookingID(ctx context.Context, bookingID string) (*models.BookingSession, error) {
	var session models.BookingSession
	err := r.coll.FindOne(ctx, bson.M{"bookingId": bookingID}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.New("booking session not found")
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetByConfirmationID resolves the confirmation code handed to payment.
func (r *mongoSessionRepo) GetByConfirmationID(ctx context.Context, confirmationID string) (*models.BookingSession, error) {
	var session models.BookingSession
	err := r.coll.FindOne(ctx, bson.M{"confirmationId": confirmationID}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.New("booking session not found")
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
