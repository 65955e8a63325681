package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domainuser "hostal/internal/domain/user"
	"hostal/internal/infra/storage/memory"
)

func Test_UserDirectory_Resolve(t *testing.T) {
	req := require.New(t)
	users := memory.NewUserRepository()
	ctx := context.Background()

	ana, err := domainuser.NewUser(domainuser.CreateParams{ID: "u1", Email: "ana@example.com", Name: "Ana Torres"})
	req.NoError(err)
	req.NoError(users.Save(ctx, ana))

	old, err := domainuser.NewUser(domainuser.CreateParams{ID: "u2", Email: "old@example.com", Name: "Cuenta Antigua"})
	req.NoError(err)
	old.Deactivate()
	req.NoError(users.Save(ctx, old))

	dir := UserDirectory{Users: users}

	entry, err := dir.Resolve(ctx, "u1")
	req.NoError(err)
	req.True(entry.Exists)
	req.True(entry.Active)
	req.Equal("Ana Torres", entry.DisplayName)

	entry, err = dir.Resolve(ctx, "u2")
	req.NoError(err)
	req.True(entry.Exists)
	req.False(entry.Active)

	entry, err = dir.Resolve(ctx, "ghost")
	req.NoError(err)
	req.False(entry.Exists)
}
