package main

import (
	"encoding/json"
	"expvar"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
	"github.com/rs/zerolog/log"

	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/config"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/dialogue"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/guard"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/ledger"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/logging"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/tournament"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/ws"
)

func newRouter(cfg config.ServerConfig, engine *tournament.Engine, hub *ws.Hub, led *ledger.Ledger, grd *guard.Guard, cache *dialogue.Cache) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/ws", hub.HandleWS)
	r.With(apiLogMiddleware()).Get("/healthz", healthHandler(engine))

	r.Route("/api", func(r chi.Router) {
		r.Use(apiLogMiddleware())
		r.Get("/status", statusHandler(engine, hub, led, grd, cache))
		r.Get("/agents", agentsHandler(engine))
		r.Get("/agents/{agent_id}/usage", agentUsageHandler(engine, led))

		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(cfg.AdminAPIKey))
			r.Post("/admin/reset", resetHandler(engine))
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})

	return r
}

func apiLogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{})),
		&httplog.Options{
			Level:              slog.LevelInfo,
			Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogRequestBody:     func(*http.Request) bool { return false },
			LogResponseBody:    func(*http.Request) bool { return false },
			LogRequestHeaders:  []string{},
			LogResponseHeaders: []string{},
			LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
				rc := chi.RouteContext(req.Context())
				route := req.URL.Path
				if rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}
				return []slog.Attr{
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("method", req.Method),
					slog.String("route", route),
					slog.String("path", req.URL.Path),
				}
			},
		},
	)
}

func writeHTTPError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}

func healthHandler(engine *tournament.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := engine.Snapshot()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":    true,
			"phase": snap.GameState.Phase,
		})
	}
}

func statusHandler(engine *tournament.Engine, hub *ws.Hub, led *ledger.Ledger, grd *guard.Guard, cache *dialogue.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := engine.Snapshot()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"phase":              snap.GameState.Phase,
			"round":              snap.GameState.Round,
			"timeLeft":           snap.GameState.TimeLeft,
			"agents":             len(snap.Agents),
			"activeInteractions": len(snap.GameState.ActiveInteractions),
			"spectators":         hub.ClientCount(),
			"rateLimits":         grd.Status(),
			"cache":              cache.Stats(),
			"housePoolUSD":       led.HouseTotal(),
		})
	}
}

func agentsHandler(engine *tournament.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := engine.Snapshot()
		_ = json.NewEncoder(w).Encode(map[string]any{"agents": snap.Agents})
	}
}

func agentUsageHandler(engine *tournament.Engine, led *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID := chi.URLParam(r, "agent_id")
		found := false
		for _, a := range engine.Snapshot().Agents {
			if a.ID == agentID {
				found = true
				break
			}
		}
		if !found {
			writeHTTPError(w, http.StatusNotFound, "agent_not_found")
			return
		}
		usage := led.Usage(agentID)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"agentId":      agentID,
			"balanceUSD":   led.Balance(agentID),
			"totalTokens":  usage.TotalTokens,
			"totalCostUSD": usage.TotalCost,
			"requestCount": usage.RequestCount,
			"history":      led.History(agentID),
		})
	}
}

func resetHandler(engine *tournament.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine.Reset()
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

func adminAuthMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey != "" && !checkAdminAuth(r, adminKey) {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func checkAdminAuth(r *http.Request, adminKey string) bool {
	if v := r.Header.Get("X-Admin-Key"); v == adminKey {
		return true
	}
	auth := r.Header.Get("Authorization")
	prefix := "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):] == adminKey
	}
	return false
}

func logRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
