package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nextchamp-saqib/pulse/internal/auth"
	"github.com/nextchamp-saqib/pulse/internal/model"
	"github.com/nextchamp-saqib/pulse/internal/repository"
)

type output struct {
	Secret string `json:"secret"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		rateLimit   = flag.Int64("rate-limit", 10000, "requests per hour per remote address")
		maxStream   = flag.Int64("max-stream-length", 100000, "approximate max stream length per tenant")
		tenants     = flag.String("tenants", "default", "comma-separated list of enabled tenants")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	generated, err := auth.GenerateSecret()
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate secret:", err)
		os.Exit(1)
	}

	settings := &model.Settings{
		ID:              1,
		APIKeyHash:      generated.Hash,
		RateLimit:       *rateLimit,
		MaxStreamLength: *maxStream,
		Tenants:         parseTenants(*tenants),
		UpdatedAt:       time.Now().UTC(),
	}

	if err := repo.UpsertSettings(ctx, settings); err != nil {
		fmt.Fprintln(os.Stderr, "upsert settings:", err)
		os.Exit(1)
	}

	out := output{Secret: generated.Plaintext}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Secret)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func parseTenants(input string) []string {
	parts := strings.Split(input, ",")
	tenants := make([]string, 0, len(parts))
	for _, part := range parts {
		t := strings.TrimSpace(part)
		if t == "" {
			continue
		}
		tenants = append(tenants, t)
	}
	if len(tenants) == 0 {
		tenants = []string{"default"}
	}
	return tenants
}
