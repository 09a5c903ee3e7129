// Command healthcheck exits 0 when the vault service answers its health
// endpoint, for use as a container or CI readiness probe.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ericfisherdev/vaultpanel/internal/adapter/driven/vaultapi"
)

func main() {
	os.Exit(check(os.Getenv("VAULTPANEL_API_BASE_URL")))
}

func check(baseURL string) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := vaultapi.NewClient(baseURL, 2*time.Second, nil, logger)
	if err != nil {
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		return 1
	}
	return 0
}
