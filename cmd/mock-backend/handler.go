package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// ledger holds token balances per user email.
type ledger struct {
	mu       sync.Mutex
	balances map[string]float64
	fallback float64
	checks   map[string]int
}

func newLedger(spec, fallback string) (*ledger, error) {
	l := &ledger{balances: make(map[string]float64), checks: make(map[string]int)}
	if fallback != "" {
		v, err := strconv.ParseFloat(fallback, 64)
		if err != nil {
			return nil, fmt.Errorf("default balance %q: %w", fallback, err)
		}
		l.fallback = v
	}
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		email, amount, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("balance entry %q: want email=tokens", entry)
		}
		v, err := strconv.ParseFloat(amount, 64)
		if err != nil {
			return nil, fmt.Errorf("balance entry %q: %w", entry, err)
		}
		l.balances[strings.TrimSpace(email)] = v
	}
	return l, nil
}

func (l *ledger) balance(email string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.balances[email]; ok {
		return v
	}
	return l.fallback
}

func (l *ledger) set(email string, v float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[email] = v
}

// recordCheck counts a check for email and returns the new count.
func (l *ledger) recordCheck(email string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checks[email]++
	return l.checks[email]
}

func (l *ledger) snapshot() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]float64, len(l.balances))
	for k, v := range l.balances {
		out[k] = v
	}
	return out
}

type ensureRequest struct {
	UserEmail      string      `json:"user_email"`
	RequiredTokens json.Number `json:"required_tokens"`
}

func newMux(l *ledger, apiKey string, failFirst int) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/integration/metering/ensure_sufficient", func(w http.ResponseWriter, r *http.Request) {
		handleEnsureSufficient(w, r, l, apiKey, failFirst)
	})
	mux.HandleFunc("GET /admin/balances", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, l.snapshot())
	})
	mux.HandleFunc("PUT /admin/balances/{email}", func(w http.ResponseWriter, r *http.Request) {
		v, err := strconv.ParseFloat(r.URL.Query().Get("tokens"), 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "tokens must be a number"})
			return
		}
		l.set(r.PathValue("email"), v)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

func handleEnsureSufficient(w http.ResponseWriter, r *http.Request, l *ledger, apiKey string, failFirst int) {
	if apiKey != "" && r.Header.Get("x-api-key") != apiKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid api key"})
		return
	}

	var req ensureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserEmail == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "user_email is required"})
		return
	}
	required := 1.0
	if req.RequiredTokens != "" {
		v, err := req.RequiredTokens.Float64()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "required_tokens must be a number"})
			return
		}
		required = v
	}

	n := l.recordCheck(req.UserEmail)
	if strings.HasPrefix(req.UserEmail, "outage+") {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "ledger unavailable"})
		return
	}
	if n <= failFirst {
		slog.Info("scripted failure", "user_email", req.UserEmail, "check", n)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "try again"})
		return
	}

	balance := l.balance(req.UserEmail)
	if balance < required {
		slog.Info("insufficient balance", "user_email", req.UserEmail, "balance", balance, "required", required)
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"detail": "insufficient tokens"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sufficient": true, "balance": balance})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
