package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/score-dashboard/internal/board"
	"github.com/DoyleJ11/score-dashboard/internal/metrics"
	"github.com/DoyleJ11/score-dashboard/internal/sink/websink"
	"github.com/DoyleJ11/score-dashboard/internal/ws"
)

// SetupFeedRoutes serves the dev score feed: the REST endpoints the dashboard
// fetches its initial snapshot from and the websocket it listens on.
func SetupFeedRoutes(b *board.Board, m *metrics.Metrics, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	api := &FeedAPI{board: b, log: log}

	r.Get("/teams", api.ListTeams)
	r.Post("/teams", api.CreateTeam)
	r.Put("/teams/{id}", api.RenameTeam)
	r.Delete("/teams/{id}", api.DeleteTeam)
	r.Get("/tests", api.ListTests)
	r.Post("/tests", api.CreateTest)
	r.Delete("/tests/{id}", api.DeleteTest)
	r.Get("/team_scores", api.ListScores)
	r.Post("/team_scores", api.CreateScore)
	r.Delete("/team_scores/{id}", api.DeleteScore)
	r.Get("/team_scores_by_team", api.GroupedScores)
	r.Get("/ws/results", ws.Handler(b, log))

	r.Get("/healthz", Healthz)
	r.Handle("/metrics", m.Handler())

	// Dashboards are served from other origins.
	return cors.AllowAll().Handler(r)
}

// SetupDashboardRoutes serves the browser surface of the web sink. With a nil
// sink (terminal mode) only status, health and metrics are served.
func SetupDashboardRoutes(s *websink.Sink, status ChartStatus, m *metrics.Metrics, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	api := &DashboardAPI{status: status}

	if s != nil {
		r.Get("/", s.HandleIndex)
		r.Get("/app.js", s.HandleScript)
		r.Get("/ws", ws.Handler(s, log))
	}
	r.Get("/status", api.Status)

	r.Get("/healthz", Healthz)
	r.Handle("/metrics", m.Handler())
	return r
}
