package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack-app/entitlements/pkg/requestid"
)

func serve(t *testing.T, incoming string) (ctxID, headerID string) {
	t.Helper()
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = requestid.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/entitlements", nil)
	if incoming != "" {
		req.Header.Set(requestid.Header, incoming)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	return ctxID, rec.Header().Get(requestid.Header)
}

func TestMiddleware_ReusesValidIDs(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"abc123", "req_42", "ABC-123_xyz", "550e8400-e29b-41d4-a716-446655440000"} {
		t.Run(id, func(t *testing.T) {
			t.Parallel()
			ctxID, headerID := serve(t, id)
			assert.Equal(t, id, ctxID)
			assert.Equal(t, id, headerID)
		})
	}
}

func TestMiddleware_ReplacesInvalidIDs(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"missing":    "",
		"spaces":     "a b c",
		"slashes":    "a/b",
		"markup":     "<script>",
		"too long":   strings.Repeat("a", 129),
		"at sign":    "user@host",
		"semicolons": "a;b",
	}
	for name, id := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctxID, headerID := serve(t, id)
			require.NotEmpty(t, ctxID)
			assert.Equal(t, ctxID, headerID)
			assert.NotEqual(t, id, ctxID)
			_, err := uuid.Parse(ctxID)
			assert.NoError(t, err, "generated ids are UUIDs")
		})
	}
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := requestid.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(requestid.WithContext(context.Background(), "req-1"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "req-1", attr.Value.String())
}
