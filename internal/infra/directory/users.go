package directory

import (
	"context"
	"errors"

	appchat "hostal/internal/app/chat"
	domainuser "hostal/internal/domain/user"
)

// UserDirectory answers participant lookups from the user repository.
// Unknown ids resolve to a non-existent entry rather than an error so the
// chat service owns the policy.
type UserDirectory struct {
	Users domainuser.Repository
}

func (d UserDirectory) Resolve(ctx context.Context, id string) (appchat.Resolution, error) {
	u, err := d.Users.ByID(ctx, domainuser.ID(id))
	if errors.Is(err, domainuser.ErrNotFound) {
		return appchat.Resolution{}, nil
	}
	if err != nil {
		return appchat.Resolution{}, err
	}
	return appchat.Resolution{
		Exists:      true,
		Active:      u.Active,
		DisplayName: u.Name,
	}, nil
}

var _ appchat.Directory = UserDirectory{}
