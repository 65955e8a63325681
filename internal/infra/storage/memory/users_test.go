package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"hostal/internal/domain/listings"
	domainuser "hostal/internal/domain/user"
)

func Test_UserRepository_Email_Uniqueness(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository()
	ctx := context.Background()

	ana, err := domainuser.NewUser(domainuser.CreateParams{ID: "u1", Email: "ana@example.com", Name: "Ana"})
	req.NoError(err)
	req.NoError(repo.Save(ctx, ana))

	impostor, err := domainuser.NewUser(domainuser.CreateParams{ID: "u2", Email: "ana@example.com", Name: "Otra Ana"})
	req.NoError(err)
	req.ErrorIs(repo.Save(ctx, impostor), domainuser.ErrEmailAlreadyUsed)

	// Same user may change their own email.
	ana.Email = "ana.torres@example.com"
	req.NoError(repo.Save(ctx, ana))

	_, err = repo.ByEmail(ctx, "ana@example.com")
	req.ErrorIs(err, domainuser.ErrNotFound)

	byEmail, err := repo.ByEmail(ctx, "ana.torres@example.com")
	req.NoError(err)
	req.Equal(domainuser.ID("u1"), byEmail.ID)

	_, err = repo.ByID(ctx, "missing")
	req.ErrorIs(err, domainuser.ErrNotFound)
}

func Test_ListingRepository_Roundtrip(t *testing.T) {
	req := require.New(t)
	repo := NewListingRepository()
	ctx := context.Background()

	l, err := listings.NewListing(listings.CreateParams{ID: "l1", Host: "u1", Title: "Habitación céntrica"})
	req.NoError(err)
	req.NoError(repo.Save(ctx, l))

	got, err := repo.ByID(ctx, "l1")
	req.NoError(err)
	req.Equal(listings.HostID("u1"), got.Host)

	_, err = repo.ByID(ctx, "missing")
	req.ErrorIs(err, listings.ErrNotFound)
}
