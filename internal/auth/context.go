package auth

import (
	"context"

	"github.com/google/uuid"
)

// GetAdminIDFromContext retrieves the admin id from the request context.
// Returns the id and true if found, otherwise uuid.Nil and false.
func GetAdminIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	adminID, ok := ctx.Value(AdminIDKey).(uuid.UUID)
	return adminID, ok
}
