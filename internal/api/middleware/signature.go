package middleware

import (
	"bytes"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"deployd/internal/engine/signing"
	"deployd/internal/pkg/errors"
	"deployd/internal/platform/config"
)

// SignatureMiddleware authenticates webhook requests by their
// X-Timestamp and X-Signature headers: the signature must be the
// HMAC-SHA256 of timestamp+body under the shared secret, and the
// timestamp must fall inside the replay window.
type SignatureMiddleware struct {
	secret string
	window time.Duration
	now    func() time.Time
}

func NewSignatureMiddleware(cfg config.SecurityConfig) *SignatureMiddleware {
	return &SignatureMiddleware{
		secret: cfg.APISecret,
		window: cfg.ReplayWindow,
		now:    time.Now,
	}
}

func (m *SignatureMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sig := r.Header.Get(signing.HeaderSignature)
		ts := r.Header.Get(signing.HeaderTimestamp)

		if sig == "" || ts == "" {
			logReject(r, "missing auth headers")
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden,
				"Missing auth header(s). Make sure you're sending 'X-Signature' and 'X-Timestamp'.", nil)
			return
		}

		tsVal, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			logReject(r, "malformed timestamp")
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Malformed timestamp.", nil)
			return
		}

		skew := m.now().Unix() - tsVal
		if skew < 0 {
			skew = -skew
		}
		if time.Duration(skew)*time.Second > m.window {
			logReject(r, "timestamp outside replay window")
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Too old.", nil)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if stderrors.As(err, &maxErr) {
				logReject(r, "payload too large")
				errors.WriteError(w, http.StatusRequestEntityTooLarge, errors.ErrCodePayloadTooLarge, "Payload too large.", nil)
				return
			}
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Failed to read request body.", nil)
			return
		}
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		if !signing.Verify(m.secret, ts, body, sig) {
			logReject(r, "invalid signature")
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Invalid Signature.", nil)
			return
		}

		next(w, r)
	}
}

// logReject records the rejection with a sanitized request summary.
// Neither the body nor any header value ends up in the log.
func logReject(r *http.Request, reason string) {
	log.Warn().
		Str("reason", reason).
		Dict("request", requestSummary(r)).
		Msg("rejected webhook request")
}

func requestSummary(r *http.Request) *zerolog.Event {
	return zerolog.Dict().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("query", r.URL.RawQuery).
		Str("ip", ClientIP(r)).
		Str("user_agent", r.UserAgent())
}

// ClientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
