package cart

import (
	"strings"

	"github.com/google/uuid"
)

// Owner identifies who a cart belongs to. Exactly one of the two fields is
// meaningful at a time; an authenticated user always wins over a guest token.
type Owner struct {
	UserID  *uuid.UUID
	GuestID string
}

// UserOwner builds an Owner for an authenticated user.
func UserOwner(userID uuid.UUID) Owner {
	return Owner{UserID: &userID}
}

// GuestOwner builds an Owner for a client-generated guest token.
func GuestOwner(guestID string) Owner {
	return Owner{GuestID: strings.TrimSpace(guestID)}
}

// Resolve applies the precedence policy: a user identity shadows any guest
// token supplied alongside it.
func Resolve(userID *uuid.UUID, guestID string) Owner {
	if userID != nil && *userID != uuid.Nil {
		return UserOwner(*userID)
	}
	return GuestOwner(guestID)
}

// IsUser reports whether the owner is an authenticated user.
func (o Owner) IsUser() bool {
	return o.UserID != nil && *o.UserID != uuid.Nil
}

// Valid reports whether the owner carries any identity at all.
func (o Owner) Valid() bool {
	return o.IsUser() || strings.TrimSpace(o.GuestID) != ""
}
