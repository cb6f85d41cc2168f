// Package trial implements the countdown of a time-boxed trial period.
//
// A Clock is started with a fixed expiry timestamp. It re-evaluates the
// remaining time from the wall clock on every tick (once a minute by default)
// instead of decrementing a counter, so sleeping laptops and suspended
// processes resume with the right value. When the remaining time reaches zero
// the clock flips to inactive, sets the label to ExpiredLabel, stops ticking
// and invokes the expiry callback. That transition happens once per Start.
//
//	clock := trial.New(
//		trial.WithOnChange(func(s trial.State) { render(s.Remaining) }),
//		trial.WithOnExpire(func(time.Time) { revokeTrialAccess() }),
//	)
//	clock.Start(expiresAt)
//	defer clock.Stop()
package trial
