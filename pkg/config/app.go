package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/httpserver"
)

// Backend names accepted by the *_STORE and CHANGEFEED variables.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// App is the entitlementd process configuration.
// Postgres and Redis connection settings live in pg.Config and redis.Config
// and are loaded only when a backend needs them.
type App struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_SERVICE_NAME" envDefault:"entitlementd"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	CatalogPath string `env:"CATALOG_PATH"`
	TrialPlan   string `env:"TRIAL_PLAN"` // plan granted during a trial period, empty grants nothing extra

	TrialTickInterval   time.Duration `env:"TRIAL_TICK_INTERVAL" envDefault:"1m"`
	RefreshTimeout      time.Duration `env:"REFRESH_TIMEOUT" envDefault:"10s"`
	SubscriptionStore   string        `env:"SUBSCRIPTION_STORE" envDefault:"memory"`
	SubscriptionPeriod  time.Duration `env:"SUBSCRIPTION_PERIOD" envDefault:"720h"`
	ExpireStaleInterval time.Duration `env:"EXPIRE_STALE_INTERVAL" envDefault:"5m"`

	SessionMaxAge   time.Duration `env:"SESSION_MAX_AGE" envDefault:"30s"` // reload cached sessions older than this
	SessionCapacity int           `env:"SESSION_CAPACITY" envDefault:"10000"`

	UsageStore            string `env:"USAGE_STORE" envDefault:"memory"`
	UsageNearLimitPercent int    `env:"USAGE_NEAR_LIMIT_PERCENT" envDefault:"80"`
	ChangeFeed            string `env:"CHANGEFEED" envDefault:"memory"`

	BreakerMaxFailures uint32        `env:"BREAKER_MAX_FAILURES" envDefault:"5"`
	BreakerOpenTimeout time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"30s"`

	HTTP httpserver.Config
}

// Validate reports every invalid setting at once.
func (a App) Validate() error {
	var errs []error
	check := func(name, value string, allowed ...string) {
		for _, v := range allowed {
			if value == v {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: unsupported value %q", name, value))
	}

	check("SUBSCRIPTION_STORE", a.SubscriptionStore, BackendMemory, BackendPostgres)
	check("USAGE_STORE", a.UsageStore, BackendMemory, BackendRedis)
	check("CHANGEFEED", a.ChangeFeed, BackendMemory, BackendRedis)

	if a.TrialPlan != "" {
		if _, err := catalog.ParsePlanType(a.TrialPlan); err != nil {
			errs = append(errs, fmt.Errorf("TRIAL_PLAN: %w", err))
		}
	}
	if a.TrialTickInterval <= 0 {
		errs = append(errs, errors.New("TRIAL_TICK_INTERVAL: must be positive"))
	}
	if a.SubscriptionPeriod <= 0 {
		errs = append(errs, errors.New("SUBSCRIPTION_PERIOD: must be positive"))
	}
	if a.SessionMaxAge <= 0 {
		errs = append(errs, errors.New("SESSION_MAX_AGE: must be positive"))
	}
	if a.SessionCapacity <= 0 {
		errs = append(errs, errors.New("SESSION_CAPACITY: must be positive"))
	}
	if a.UsageNearLimitPercent <= 0 || a.UsageNearLimitPercent > 100 {
		errs = append(errs, errors.New("USAGE_NEAR_LIMIT_PERCENT: must be in 1..100"))
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
}

// NeedsRedis reports whether any backend is served by Redis.
func (a App) NeedsRedis() bool {
	return a.UsageStore == BackendRedis || a.ChangeFeed == BackendRedis
}
