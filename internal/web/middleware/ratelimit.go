package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/JonMunkholm/regconv/internal/logging"
)

// RateLimit allows each client IP at most limit requests per period.
// Run it after TrustedRealIP so proxied clients are counted separately.
// A limit of zero or less disables it.
func RateLimit(limit int, period time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		lim := limiter.New(memory.NewStore(), limiter.Rate{
			Period: period,
			Limit:  int64(limit),
		})

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lc, err := lim.Get(r.Context(), clientKey(r.RemoteAddr))
			if err != nil {
				logging.FromContext(r.Context()).Error("rate limit lookup failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
			if lc.Reached {
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter(lc.Reset, time.Now()), 10))
				deny(w, r, http.StatusTooManyRequests, "rate limit exceeded",
					"Wait before sending more requests", "UPL005")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter returns whole seconds until reset (a Unix time), at least one.
func retryAfter(reset int64, now time.Time) int64 {
	if s := reset - now.Unix(); s > 0 {
		return s
	}
	return 1
}

// clientKey drops the port so one client's connections share a budget.
func clientKey(addr string) string {
	if a := remoteAddr(addr); a.IsValid() {
		return a.String()
	}
	return addr
}
