package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"
)

// Headers carried by every signed webhook request.
const (
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

// Signature computes the lower-case hex HMAC-SHA256 of the decimal
// timestamp string concatenated with the raw body bytes. The
// concatenation is byte-level with no separator, so the verifying side
// must hash exactly what was sent.
func Signature(secret string, timestamp int64, body []byte) string {
	return signature(secret, strconv.FormatInt(timestamp, 10), body)
}

// Verify recomputes the signature for the given timestamp string and
// body and compares it against sig in constant time. The timestamp is
// taken as the literal header value so that a request signed with
// leading zeros or other oddities fails verification.
func Verify(secret string, timestamp string, body []byte, sig string) bool {
	expected := signature(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func signature(secret, timestamp string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	io.WriteString(h, timestamp)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
