package middleware

import (
	"net/http"

	"deployd/internal/pkg/errors"
)

// MaxPayload rejects requests that declare a Content-Length over the
// limit and caps the body reader so a chunked request cannot sneak
// past the declared size.
func MaxPayload(limit int64) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				logReject(r, "payload too large")
				errors.WriteError(w, http.StatusRequestEntityTooLarge, errors.ErrCodePayloadTooLarge, "Payload too large.", nil)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next(w, r)
		}
	}
}
