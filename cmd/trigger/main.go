package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"deployd/internal/engine/signing"
)

// trigger sends one HMAC-signed deploy request and reports the result.
// The shared secret comes from DEPLOYD_API_SECRET; it is deliberately
// not a flag so it never shows up in shell history or process lists.
func main() {
	endpoint := flag.String("endpoint", "http://127.0.0.1:5000/deploy_email_sender", "Deploy endpoint URL")
	body := flag.String("body", "{}", "JSON payload to send")
	bodyFile := flag.String("body-file", "", "Read the payload from a file instead of -body")
	timeout := flag.Duration("timeout", 15*time.Minute, "How long to wait for the deploy to finish")
	flag.Parse()

	payload := []byte(*body)
	if *bodyFile != "" {
		data, err := os.ReadFile(*bodyFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: read body file: %v\n", err)
			os.Exit(2)
		}
		payload = data
	}

	secret := os.Getenv("DEPLOYD_API_SECRET")
	sender := signing.NewSender(*endpoint, secret, *timeout)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := sender.Send(ctx, payload)
	if err != nil {
		if errors.Is(err, signing.ErrEmptySecret) {
			fmt.Fprintln(os.Stderr, "error: DEPLOYD_API_SECRET is not set")
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("HTTP %d\n", resp.StatusCode)
	if len(resp.Body) > 0 {
		os.Stdout.Write(resp.Body)
		fmt.Println()
	}

	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}
