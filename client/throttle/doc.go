// Package throttle provides a [Doer] that rate-limits outbound HTTP
// calls using a token-bucket algorithm from [golang.org/x/time/rate].
//
// # Usage
//
// Wrap an existing Doer, such as an *http.Client, with [NewDoer]:
//
//	d, err := throttle.NewDoer(
//		throttle.Config{RPS: 10, Burst: 5},
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultClient,
//	)
//
// When the rate limit is exceeded, calls block until a token becomes
// available or the request context is cancelled.
package throttle
