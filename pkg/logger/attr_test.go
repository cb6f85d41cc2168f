package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/logger"
)

func TestErrors(t *testing.T) {
	t.Parallel()

	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	assert.True(t, logger.Errors(nil).Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	t.Parallel()

	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())
	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestUserID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	attr := logger.UserID(id)
	require.Equal(t, "user_id", attr.Key)
	assert.Equal(t, id.String(), attr.Value.String())
	assert.True(t, logger.UserID(uuid.Nil).Equal(slog.Attr{}))
}

func TestDomainAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "feature=ai_chat", logger.Feature("ai_chat").String())
	assert.Equal(t, "feature_type=ai_chat", logger.FeatureType("ai_chat").String())
	assert.Equal(t, "plan=premium", logger.Plan(catalog.PlanPremium).String())
	assert.Equal(t, "plan=none", logger.Plan("").String())
	assert.Equal(t, "generation=7", logger.Generation(7).String())
	assert.Equal(t, "duration=1.5s", logger.Duration(1500*time.Millisecond).String())
	assert.Equal(t, "component=engine", logger.Component("engine").String())
	assert.Equal(t, "event=trial_expired", logger.Event("trial_expired").String())
}
