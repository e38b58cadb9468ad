package db

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go-parkspot/types"
)

const DefaultCollection = "parking_events"

// EventStore is the remote collection of parking events.
type EventStore interface {
	// Query returns at most max events inside bbox, newest first.
	Query(ctx context.Context, bbox types.BoundingBox, max int) ([]types.ParkingEvent, error)
	// Write persists ev and returns the id the store assigned.
	Write(ctx context.Context, ev types.ParkingEvent) (string, error)
}

// InitFirestore builds a Firestore client from base64 encoded service
// account JSON. projectID may be empty when the credentials carry one.
func InitFirestore(ctx context.Context, encodedCreds, projectID string) (*firestore.Client, error) {
	creds, err := base64.StdEncoding.DecodeString(encodedCreds)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Firestore credentials: %w", err)
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Firestore client: %w", err)
	}
	return client, nil
}

// FirestoreStore keeps parking events in a single top-level collection.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreStore{client: client, collection: collection}
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// classify maps a Firestore failure onto the error taxonomy. Write
// rejections carry only the message the store returned.
func classify(op string, err error, write bool) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return &types.TransportError{Op: op, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &types.TransportError{Op: op, Err: err}
	}
	if write {
		return &types.StoreWriteError{Message: status.Convert(err).Message()}
	}
	return fmt.Errorf("%s: %w", op, err)
}
