package middleware

import (
	"crypto/hmac"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

const CronSecretHeader = "X-Cron-Secret"

// CronAuth guards the sweep endpoints with a shared secret so only the
// external scheduler can trigger them. An empty secret disables the
// check (local development).
func CronAuth(secret string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if secret != "" {
			provided := r.Header.Get(CronSecretHeader)
			if !hmac.Equal([]byte(provided), []byte(secret)) {
				writeAuthError(w, http.StatusUnauthorized, "Invalid cron secret")
				return
			}
		}
		next(w, r, ps)
	}
}
