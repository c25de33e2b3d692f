package market

import (
	"fmt"

	"github.com/erazemk/nepremicnine/internal/model"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   int64
	Role string
	Name string
}

// is reports whether a is a real user holding one of roles.
func (a Actor) is(roles ...string) bool {
	return a.ID > 0 && model.HasRole(a.Role, roles...)
}

func (a Actor) require(roles ...string) error {
	if !a.is(roles...) {
		return fmt.Errorf("%w: requires role %v", ErrAuthorization, roles)
	}
	return nil
}

// owns reports whether a is the owner of l.
func (a Actor) owns(l *model.Listing) bool {
	return a.is(model.RoleOwner) && l.OwnerID == a.ID
}
