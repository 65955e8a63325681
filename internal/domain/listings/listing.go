package listings

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("listings: not found")
	ErrTitleRequired = errors.New("listings: title is required")
	ErrHostRequired  = errors.New("listings: host is required")
)

type ListingID string

type HostID string

// Listing is the slice of the catalog the chat subsystem needs: enough to
// scope a conversation to a product and derive its host counterpart. Catalog
// management itself lives elsewhere.
type Listing struct {
	ID        ListingID
	Host      HostID
	Title     string
	Active    bool
	CreatedAt time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}

type CreateParams struct {
	ID        ListingID
	Host      HostID
	Title     string
	CreatedAt time.Time
}

func NewListing(params CreateParams) (*Listing, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	host := HostID(strings.TrimSpace(string(params.Host)))
	if host == "" {
		return nil, ErrHostRequired
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	return &Listing{
		ID:        params.ID,
		Host:      host,
		Title:     title,
		Active:    true,
		CreatedAt: now.UTC(),
	}, nil
}
