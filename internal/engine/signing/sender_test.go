package signing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSenderSend(t *testing.T) {
	secret := "FAKE_DEV_SECRET_NOT_SECURE!!!!!!"
	body := []byte(`{"ref": "main", "note": "kick the deploy"}`)

	var gotBody []byte
	var gotTimestamp, gotSignature, gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotTimestamp = r.Header.Get(HeaderTimestamp)
		gotSignature = r.Header.Get(HeaderSignature)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	sender := NewSender(server.URL, secret, 5*time.Second)
	sender.now = func() time.Time { return time.Unix(1700000000, 0) }

	resp, err := sender.Send(context.Background(), body)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	// The body must arrive byte-for-byte unmodified or the signature
	// check on the receiving side would fail.
	if !bytes.Equal(gotBody, body) {
		t.Errorf("body was altered in transit: got %q, want %q", gotBody, body)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotTimestamp != "1700000000" {
		t.Errorf("%s = %q, want 1700000000", HeaderTimestamp, gotTimestamp)
	}
	if !Verify(secret, gotTimestamp, gotBody, gotSignature) {
		t.Errorf("signature %q does not verify against the delivered request", gotSignature)
	}
}

func TestSenderSurfacesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "deploy failed", http.StatusInternalServerError)
	}))
	defer server.Close()

	sender := NewSender(server.URL, "secret", time.Second)
	resp, err := sender.Send(context.Background(), []byte("{}"))
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestSenderEmptySecret(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	sender := NewSender(server.URL, "", time.Second)
	_, err := sender.Send(context.Background(), []byte("{}"))
	if !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("Send() error = %v, want ErrEmptySecret", err)
	}
	if requests != 0 {
		t.Errorf("expected no network call with an empty secret, server saw %d", requests)
	}
}

func TestSenderTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	sender := NewSender(endpoint, "secret", time.Second)
	_, err := sender.Send(context.Background(), []byte("{}"))
	if err == nil {
		t.Fatal("expected a transport error sending to a closed server")
	}
	if errors.Is(err, ErrEmptySecret) {
		t.Fatalf("unexpected configuration error: %v", err)
	}
}
