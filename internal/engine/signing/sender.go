package signing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrEmptySecret is returned before any network call when a sender is
// constructed without a shared secret.
var ErrEmptySecret = errors.New("signing: empty shared secret")

// SignedRequest is the transient product of signing one payload. It is
// built fresh per send, used to populate the request headers, then
// discarded.
type SignedRequest struct {
	Body      []byte
	Timestamp int64
	Signature string
}

// NewSignedRequest signs body at the given instant.
func NewSignedRequest(secret string, body []byte, at time.Time) (*SignedRequest, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	ts := at.Unix()
	return &SignedRequest{
		Body:      body,
		Timestamp: ts,
		Signature: Signature(secret, ts, body),
	}, nil
}

// Response is the part of the HTTP exchange the caller is expected to
// inspect. The body is read in full so the connection can be reused.
type Response struct {
	StatusCode int
	Body       []byte
}

// Sender delivers HMAC-signed JSON payloads to a single endpoint.
type Sender struct {
	endpoint string
	secret   string
	client   *http.Client
	now      func() time.Time
}

func NewSender(endpoint, secret string, timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sender{
		endpoint: endpoint,
		secret:   secret,
		client:   &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

// Send signs body and POSTs it to the sender's endpoint. The body is
// transmitted byte-for-byte; re-serializing it here would invalidate
// the signature on the receiving side. Transport failures are returned
// as errors; HTTP-level failures are left to the caller via the status
// code.
func (s *Sender) Send(ctx context.Context, body []byte) (*Response, error) {
	signed, err := NewSignedRequest(s.secret, body, s.now())
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(signed.Body))
	if err != nil {
		return nil, fmt.Errorf("signing: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTimestamp, fmt.Sprintf("%d", signed.Timestamp))
	req.Header.Set(HeaderSignature, signed.Signature)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signing: send to %s: %w", s.endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("signing: read response: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
