package listing

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a listing ID resolves to nothing.
var ErrNotFound = errors.New("listing: not found")

// Repository stores and retrieves directory entries.
//
// FindByVillageCategory returns the requested page ordered newest first and
// reports whether more pages follow. ContactForRouting is the only way a
// contact value leaves the repository: PUBLIC listings yield the raw number,
// anything else yields the opaque routing token, so a HIDDEN number never
// crosses the boundary.
type Repository interface {
	Create(ctx context.Context, l *Listing) (string, error)
	FindByVillageCategory(ctx context.Context, village, category string, page, perPage int) ([]Listing, bool, error)
	ContactForRouting(ctx context.Context, id string) (value string, routed bool, err error)
	Close() error
}

func contactValue(l *Listing) (string, bool) {
	if l.Visibility == VisibilityPublic {
		return l.ContactNumber, false
	}
	return l.RoutingToken, true
}
