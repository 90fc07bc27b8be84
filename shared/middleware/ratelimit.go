package middleware

import (
	"net/http"

	"github.com/itchan-dev/itboard/shared/errors"
	"github.com/itchan-dev/itboard/shared/middleware/throttle"
	"github.com/itchan-dev/itboard/shared/utils"
)

// RateLimit rejects requests once the identity's token bucket is empty.
// This is a coarse flood guard; per-board posting delays live in the service.
func RateLimit(th *throttle.Throttle, getIdentity func(r *http.Request) (string, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := getIdentity(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			if !th.Allow(identity) {
				utils.WriteErrorAndStatusCode(w, &errors.ErrorWithStatusCode{
					Message:    "Rate limit exceeded, try again later",
					StatusCode: http.StatusTooManyRequests,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GlobalRateLimit(th *throttle.Throttle) func(http.Handler) http.Handler {
	return RateLimit(th, func(r *http.Request) (string, error) { return "global", nil })
}

func IPRateLimit(th *throttle.Throttle) func(http.Handler) http.Handler {
	return RateLimit(th, utils.GetIP)
}
