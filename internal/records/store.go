// Package records resolves pickup references against the mobile app's
// Firestore collections.
package records

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/RubbishGeo/geo-backend/internal/reconcile"
)

// DefaultCollection is the collection the mobile app writes pickup documents to.
const DefaultCollection = "RubbishRunStory"

// Store is a Firestore-backed reconcile.RecordStore.
type Store struct {
	client     *firestore.Client
	collection string
}

func NewStore(client *firestore.Client, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{client: client, collection: collection}
}

// GetPickup fetches one pickup document by id. A missing document maps to
// reconcile.ErrNotFound; anything else is a transport failure. The document's
// fields are returned as-is; the store is schema-on-write, so presence and
// shape checks belong to the caller.
func (s *Store) GetPickup(ctx context.Context, id string) (reconcile.Record, error) {
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, reconcile.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching pickup document %q: %w", id, err)
	}
	return reconcile.Record(snap.Data()), nil
}
