package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/kalambet/awarebot/internal/errlog"
	"github.com/kalambet/awarebot/internal/knowledge"
)

// bearerAuth rejects requests whose Authorization header does not carry
// the expected token. Comparison is constant-time.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			provided, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func errorsIsIndex(err error) bool {
	return errors.Is(err, errlog.ErrIndexOutOfRange)
}

func errorsIsEmpty(err error) bool {
	return errors.Is(err, knowledge.ErrEmptyEntry)
}
