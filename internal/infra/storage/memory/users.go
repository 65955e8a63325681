package memory

import (
	"context"
	"sync"

	"hostal/internal/domain/listings"
	domainuser "hostal/internal/domain/user"
)

// UserRepository is the in-memory user store used for local development and
// tests. Email uniqueness is enforced under the write lock.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[domainuser.ID]*domainuser.User
	byEmail map[string]domainuser.ID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[domainuser.ID]*domainuser.User),
		byEmail: make(map[string]domainuser.ID),
	}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.byID[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.byEmail[email]; ok {
		return cloneUser(r.byID[id]), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *UserRepository) Save(ctx context.Context, u *domainuser.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.byEmail[u.Email]; ok && owner != u.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	if previous, ok := r.byID[u.ID]; ok && previous.Email != u.Email {
		delete(r.byEmail, previous.Email)
	}
	r.byID[u.ID] = cloneUser(u)
	r.byEmail[u.Email] = u.ID
	return nil
}

func cloneUser(u *domainuser.User) *domainuser.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// ListingRepository is the in-memory listing store.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[listings.ListingID]*listings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{items: make(map[listings.ListingID]*listings.Listing)}
}

func (r *ListingRepository) ByID(ctx context.Context, id listings.ListingID) (*listings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.items[id]; ok {
		clone := *l
		return &clone, nil
	}
	return nil, listings.ErrNotFound
}

func (r *ListingRepository) Save(ctx context.Context, l *listings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *l
	r.items[l.ID] = &clone
	return nil
}

var (
	_ domainuser.Repository = (*UserRepository)(nil)
	_ listings.Repository   = (*ListingRepository)(nil)
)
