package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/pg"
)

// querier is the subset of pgxpool.Pool used by the repository.
// pgx.Tx satisfies it too, so the repository can run inside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores subscriptions, feature trials and trial periods in PostgreSQL.
// Schema lives in Migrations.
type PostgresRepository struct {
	db   querier
	opts options
}

// NewPostgresRepository creates a repository backed by the given pool.
func NewPostgresRepository(pool *pgxpool.Pool, opts ...Option) *PostgresRepository {
	if pool == nil {
		panic("subscription: pgx pool is required")
	}
	return newPostgresRepository(pool, opts...)
}

// WithTx returns a repository bound to an open transaction.
func (r *PostgresRepository) WithTx(tx pgx.Tx) *PostgresRepository {
	return &PostgresRepository{db: tx, opts: r.opts}
}

func newPostgresRepository(db querier, opts ...Option) *PostgresRepository {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &PostgresRepository{db: db, opts: o}
}

const selectSubscription = `
	SELECT id, user_id, plan_type, status, started_at, expires_at
	FROM subscriptions
	WHERE user_id = $1`

func (r *PostgresRepository) FetchSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := scanSubscription(r.db.QueryRow(ctx, selectSubscription, userID))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, errors.Join(ErrFailedToFetchSubscription, err)
	}
	return sub, nil
}

const selectFeatureTrials = `
	SELECT id, user_id, feature_name, used_at
	FROM feature_trials
	WHERE user_id = $1
	ORDER BY used_at`

func (r *PostgresRepository) FetchFeatureTrials(ctx context.Context, userID uuid.UUID) ([]FeatureTrial, error) {
	rows, err := r.db.Query(ctx, selectFeatureTrials, userID)
	if err != nil {
		return nil, errors.Join(ErrFailedToFetchTrials, err)
	}
	trials, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (FeatureTrial, error) {
		var t FeatureTrial
		err := row.Scan(&t.ID, &t.UserID, &t.FeatureName, &t.UsedAt)
		t.UsedAt = t.UsedAt.UTC()
		return t, err
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToFetchTrials, err)
	}
	return trials, nil
}

func (r *PostgresRepository) FetchTrialStatus(ctx context.Context, userID uuid.UUID) (TrialStatus, error) {
	var expiresAt time.Time
	err := r.db.QueryRow(ctx, `SELECT expires_at FROM trial_periods WHERE user_id = $1`, userID).Scan(&expiresAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return TrialStatus{}, nil
		}
		return TrialStatus{}, errors.Join(ErrFailedToFetchTrialStatus, err)
	}
	return trialStatusAt(&expiresAt, r.opts.now()), nil
}

const insertFeatureTrial = `
	INSERT INTO feature_trials (id, user_id, feature_name, used_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id, feature_name) DO NOTHING`

// RecordFeatureTrial relies on the (user_id, feature_name) unique constraint.
// A concurrent duplicate insert is reported as success.
func (r *PostgresRepository) RecordFeatureTrial(ctx context.Context, userID uuid.UUID, featureName string) error {
	if err := validateInput(userID, featureName); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, insertFeatureTrial, uuid.New(), userID, featureName, r.opts.now())
	if err != nil && !pg.IsDuplicateKeyError(err) {
		return errors.Join(ErrFailedToRecordTrial, err)
	}
	return nil
}

const upsertSubscription = `
	INSERT INTO subscriptions (id, user_id, plan_type, status, started_at, expires_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $5)
	ON CONFLICT (user_id) DO UPDATE SET
		plan_type  = EXCLUDED.plan_type,
		status     = EXCLUDED.status,
		started_at = EXCLUDED.started_at,
		expires_at = EXCLUDED.expires_at,
		updated_at = EXCLUDED.updated_at
	RETURNING id, user_id, plan_type, status, started_at, expires_at`

func (r *PostgresRepository) UpsertSubscription(ctx context.Context, userID uuid.UUID, plan catalog.PlanType) (*Subscription, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUserID
	}
	if !plan.Valid() {
		return nil, ErrInvalidPlan
	}
	now := r.opts.now()
	row := r.db.QueryRow(ctx, upsertSubscription,
		uuid.New(), userID, string(plan), string(StatusActive), now, now.Add(r.opts.period))
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, errors.Join(ErrFailedToSaveSubscription, err)
	}
	return sub, nil
}

func (r *PostgresRepository) CancelSubscription(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET status = $2, updated_at = $3 WHERE user_id = $1`,
		userID, string(StatusCanceled), r.opts.now())
	if err != nil {
		return errors.Join(ErrFailedToSaveSubscription, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

const upsertTrialPeriod = `
	INSERT INTO trial_periods (user_id, started_at, expires_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id) DO UPDATE SET expires_at = EXCLUDED.expires_at`

// StartTrialPeriod opens (or moves) the user's time-boxed trial period.
func (r *PostgresRepository) StartTrialPeriod(ctx context.Context, userID uuid.UUID, expiresAt time.Time) error {
	if userID == uuid.Nil {
		return ErrMissingUserID
	}
	if _, err := r.db.Exec(ctx, upsertTrialPeriod, userID, r.opts.now(), expiresAt.UTC()); err != nil {
		return errors.Join(ErrFailedToStartTrial, err)
	}
	return nil
}

// ExpireStale moves active subscriptions whose period has ended to expired.
// Returns the number of updated records.
func (r *PostgresRepository) ExpireStale(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET status = $1, updated_at = $2 WHERE status = $3 AND expires_at <= $2`,
		string(StatusExpired), r.opts.now(), string(StatusActive))
	if err != nil {
		return 0, errors.Join(ErrFailedToSaveSubscription, err)
	}
	return tag.RowsAffected(), nil
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var (
		sub    Subscription
		plan   string
		status string
	)
	if err := row.Scan(&sub.ID, &sub.UserID, &plan, &status, &sub.StartedAt, &sub.ExpiresAt); err != nil {
		return nil, err
	}
	sub.PlanType = catalog.PlanType(plan)
	sub.Status = Status(status)
	sub.StartedAt = sub.StartedAt.UTC()
	sub.ExpiresAt = sub.ExpiresAt.UTC()
	return &sub, nil
}

var (
	_ Repository         = (*PostgresRepository)(nil)
	_ TrialPeriodStarter = (*PostgresRepository)(nil)
)
