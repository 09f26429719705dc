package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"deployd/internal/platform/auth"
	"deployd/internal/platform/config"
)

// token mints an admin bearer token for the ops API and prints it to
// stdout, nothing else, so it can be captured in a shell variable.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	subject := flag.String("subject", "admin", "Token subject")
	scopes := flag.String("scopes", "history:read", "Comma-separated token scopes")
	ttl := flag.Duration("ttl", 0, "Token lifetime (default: admin.token_ttl from config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(2)
	}

	svc := auth.NewTokenService(cfg.Admin)
	token, err := svc.Generate(*subject, strings.Split(*scopes, ","), *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
