// Command mock-backend runs a deterministic metering API for local
// development and integration testing of the gateway. It implements the
// ensure_sufficient endpoint against an in-memory balance table.
//
// Configuration:
//
//	MOCK_PORT            - Listen port (default: 9090)
//	MOCK_API_KEY         - Required x-api-key value (default: none required)
//	MOCK_BALANCES        - Initial balances, "alice@example.com=10,bob@example.com=0"
//	MOCK_DEFAULT_BALANCE - Balance of principals not listed (default: 0)
//	MOCK_FAIL_FIRST      - Answer the first N checks of each principal with 503 (default: 0)
//
// Principals whose email starts with "outage+" always get a 500, which
// exercises the gateway's retry path until it gives up.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	ledger, err := newLedger(os.Getenv("MOCK_BALANCES"), os.Getenv("MOCK_DEFAULT_BALANCE"))
	if err != nil {
		slog.Error("invalid balances", "error", err)
		os.Exit(1)
	}
	failFirst, _ := strconv.Atoi(os.Getenv("MOCK_FAIL_FIRST"))

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: newMux(ledger, os.Getenv("MOCK_API_KEY"), failFirst),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock metering backend starting", "port", port, "fail_first", failFirst)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
