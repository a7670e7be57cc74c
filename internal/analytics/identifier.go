package analytics

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/errors"
)

// UserID is a validated user identifier in canonical lower-case hex form.
type UserID string

// ParseUserID accepts a 24-character hexadecimal object id.
func ParseUserID(raw string) (UserID, error) {
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return "", apperrors.New(apperrors.ErrInvalidIdentifier, http.StatusBadRequest, "Invalid User ID")
	}
	return UserID(oid.Hex()), nil
}

// ObjectID returns the identifier as a BSON object id. The value was
// validated by ParseUserID, so the conversion cannot fail.
func (u UserID) ObjectID() primitive.ObjectID {
	oid, _ := primitive.ObjectIDFromHex(string(u))
	return oid
}

func (u UserID) String() string {
	return string(u)
}
