package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/entitlement"
	"github.com/medtrack-app/entitlements/pkg/logger"
	"github.com/medtrack-app/entitlements/pkg/requestid"
	"github.com/medtrack-app/entitlements/pkg/usage"
)

// Handler exposes entitlement sessions over HTTP.
type Handler struct {
	sessions *entitlement.Sessions
	users    UserExtractor
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithUserExtractor replaces the X-User-ID header lookup.
func WithUserExtractor(fn UserExtractor) Option {
	return func(h *Handler) {
		if fn != nil {
			h.users = fn
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithClock sets the time source used to resolve trial-period durations.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// New returns a Handler serving sessions.
func New(sessions *entitlement.Sessions, opts ...Option) *Handler {
	if sessions == nil {
		panic("httpapi: sessions cannot be nil")
	}
	h := &Handler{
		sessions: sessions,
		users:    HeaderUser(DefaultUserHeader),
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With(logger.Component("httpapi"))
	return h
}

// Routes returns the router to mount at the service root. Routes whose
// answer depends on consumed trials reload the session from the repository
// first.
//
//	GET    /entitlements                              snapshot with every feature decision
//	GET    /entitlements/features/{feature}           access decision
//	POST   /entitlements/features/{feature}/trial     consume the one-time trial
//	GET    /entitlements/usage/{featureType}          monthly usage and level
//	POST   /entitlements/usage/{featureType}          count one use
//	PUT    /entitlements/plan                         buy, upgrade or downgrade
//	DELETE /entitlements/subscription                 cancel
//	POST   /entitlements/trial-period                 open a time-boxed trial
//	DELETE /entitlements/session                      drop the cached session
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)

	r.Route("/entitlements", func(r chi.Router) {
		r.Use(h.identify)

		r.Get("/", h.snapshot)
		r.Get("/features/{feature}", h.feature)
		r.Post("/features/{feature}/trial", h.recordTrial)
		r.Get("/usage/{featureType}", h.checkUsage)
		r.Post("/usage/{featureType}", h.incrementUsage)
		r.Put("/plan", h.changePlan)
		r.Delete("/subscription", h.cancel)
		r.Post("/trial-period", h.startTrialPeriod)
		r.Delete("/session", h.release)
	})

	return r
}

// SnapshotResponse is the body of GET /entitlements.
type SnapshotResponse struct {
	entitlement.State
	Plan     *catalog.PlanType      `json:"plan"`
	Features []entitlement.Decision `json:"features"`
}

// UsageIncrement is the body of POST /entitlements/usage/{featureType}.
type UsageIncrement struct {
	FeatureType  usage.FeatureType `json:"feature_type"`
	CurrentUsage int64             `json:"current_usage"`
}

// ChangePlanRequest is the body of PUT /entitlements/plan.
type ChangePlanRequest struct {
	Plan string `json:"plan"`
}

// TrialPeriodRequest is the body of POST /entitlements/trial-period.
// Exactly one of ExpiresAt and Duration must be set.
type TrialPeriodRequest struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Duration  string     `json:"duration,omitempty"`
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	e, err := h.sessions.AcquireFresh(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	names := e.Catalog().Names()
	resp := SnapshotResponse{
		State:    e.Snapshot(),
		Plan:     e.CurrentPlan(user),
		Features: make([]entitlement.Decision, 0, len(names)),
	}
	for _, name := range names {
		resp.Features = append(resp.Features, e.Explain(user, name))
	}
	ok(w, resp)
}

func (h *Handler) feature(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	e, err := h.sessions.AcquireFresh(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, e.Explain(user, chi.URLParam(r, "feature")))
}

func (h *Handler) recordTrial(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	e, err := h.sessions.AcquireFresh(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := e.RecordFeatureTrial(r.Context(), user, chi.URLParam(r, "feature")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) checkUsage(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	e, err := h.sessions.Acquire(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := e.CheckFeatureUsage(r.Context(), user, usage.FeatureType(chi.URLParam(r, "featureType")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *Handler) incrementUsage(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	e, err := h.sessions.Acquire(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ft := usage.FeatureType(chi.URLParam(r, "featureType"))
	n, err := e.IncrementFeatureUsage(r.Context(), user, ft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, UsageIncrement{FeatureType: ft, CurrentUsage: n})
}

func (h *Handler) changePlan(w http.ResponseWriter, r *http.Request) {
	var req ChangePlanRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	plan, err := catalog.ParsePlanType(req.Plan)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	user := userFromContext(r.Context())
	e, err := h.sessions.Acquire(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sub, err := e.ChangePlan(r.Context(), user, plan)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, sub)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	e, err := h.sessions.Acquire(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := e.CancelSubscription(r.Context(), user); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) startTrialPeriod(w http.ResponseWriter, r *http.Request) {
	var req TrialPeriodRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	expiresAt, err := req.resolve(h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	user := userFromContext(r.Context())
	e, err := h.sessions.Acquire(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := e.StartTrialPeriod(r.Context(), user, expiresAt); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	h.sessions.Release(userFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (req TrialPeriodRequest) resolve(now time.Time) (time.Time, error) {
	switch {
	case req.ExpiresAt != nil && req.Duration != "":
		return time.Time{}, errors.Join(ErrInvalidRequest, errors.New("set either expires_at or duration"))
	case req.ExpiresAt != nil:
		if !req.ExpiresAt.After(now) {
			return time.Time{}, errors.Join(ErrInvalidRequest, errors.New("expires_at must be in the future"))
		}
		return req.ExpiresAt.UTC(), nil
	case req.Duration != "":
		d, err := time.ParseDuration(req.Duration)
		if err != nil || d <= 0 {
			return time.Time{}, errors.Join(ErrInvalidRequest, errors.New("duration must be a positive Go duration"))
		}
		return now.Add(d).UTC(), nil
	}
	return time.Time{}, errors.Join(ErrInvalidRequest, errors.New("expires_at or duration is required"))
}

const maxBodyBytes = 1 << 16

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrInvalidRequest, err)
	}
	return nil
}
