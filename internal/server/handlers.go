package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/matejonnet/dependency-analysis/pkg/methods"
	"github.com/matejonnet/dependency-analysis/pkg/whitelist"
)

const handlersLogPrefix = "server:handlers"

// healthChecker is the part of the whitelist service the health endpoint needs.
type healthChecker interface {
	Health(ctx context.Context) *whitelist.HealthOutput
}

// MethodInfo describes one registered method on /methods.
type MethodInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Params      json.RawMessage `json:"params"`
}

// DescribeMethods lists the registry in name order with each method's parameter schema.
func DescribeMethods(reg *methods.Registry) []MethodInfo {
	out := make([]MethodInfo, 0, reg.Len())
	for _, name := range reg.Names() {
		m, err := reg.Get(name)
		if err != nil {
			continue
		}
		out = append(out, MethodInfo{Name: name, Description: m.Description(), Params: m.Shape().JSON()})
	}
	return out
}

func handleHealth(h healthChecker, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		out := h.Health(ctx)
		status := http.StatusOK
		if out.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, out)
	}
}

func handleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func handleMethods(reg *methods.Registry) http.HandlerFunc {
	described := DescribeMethods(reg)
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"methods": described})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to write response: %v", handlersLogPrefix, err))
	}
}
