package logger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type userIDKey struct{}

// ContextWithUserID stores the acting user so that loggers built with
// WithUserIDFromContext add it to every record.
func ContextWithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFromContext returns the user stored by ContextWithUserID.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// WithUserIDFromContext injects "user_id" from the context into each record.
func WithUserIDFromContext() Option {
	return WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
		id, ok := UserIDFromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return UserID(id), true
	})
}
