package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record or document does not exist.
var ErrNotFound = errors.New("not found")

// Store is a document-partitioned record store.
type Store interface {
	Upsert(ctx context.Context, rec Record) error
	Get(ctx context.Context, docID, id string) (Record, error)
	// Query returns every record of a document, sorted by kind then order.
	Query(ctx context.Context, docID string) ([]Record, error)
	Documents(ctx context.Context) ([]string, error)
	DeleteDocument(ctx context.Context, docID string) error
}

// Sections returns the section records of a document in order.
func Sections(ctx context.Context, s Store, docID string) ([]Record, error) {
	recs, err := s.Query(ctx, docID)
	if err != nil {
		return nil, err
	}
	out := recs[:0:0]
	for _, r := range recs {
		if r.Kind == KindSection {
			out = append(out, r)
		}
	}
	return out, nil
}
