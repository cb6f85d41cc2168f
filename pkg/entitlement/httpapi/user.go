package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/medtrack-app/entitlements/pkg/logger"
)

// DefaultUserHeader carries the caller's user id when no other extractor is set.
const DefaultUserHeader = "X-User-ID"

// UserExtractor resolves the acting user of a request. Authentication happens
// upstream; the extractor only reads the identity it established.
type UserExtractor func(r *http.Request) (uuid.UUID, error)

// HeaderUser reads the user id from the named header.
func HeaderUser(header string) UserExtractor {
	return func(r *http.Request) (uuid.UUID, error) {
		raw := strings.TrimSpace(r.Header.Get(header))
		if raw == "" {
			return uuid.Nil, ErrMissingUser
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, errors.Join(ErrInvalidUserID, err)
		}
		if id == uuid.Nil {
			return uuid.Nil, ErrMissingUser
		}
		return id, nil
	}
}

type userKey struct{}

func userFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userKey{}).(uuid.UUID)
	return id
}

// identify rejects requests without a user and stores the user for handlers
// and for loggers built with logger.WithUserIDFromContext.
func (h *Handler) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.users(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, id)
		ctx = logger.ContextWithUserID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
