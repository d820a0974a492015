package httpapi

import (
	"context"
	"net/http"

	"github.com/DoyleJ11/score-dashboard/internal/chart"
	"github.com/DoyleJ11/score-dashboard/pkg/types"
)

// ChartStatus reports what the chart shows. *container.Container implements it.
type ChartStatus interface {
	Status(ctx context.Context) (chart.View, error)
}

type DashboardAPI struct {
	status ChartStatus
}

type statusResponse struct {
	Title     string         `json:"title"`
	Version   int            `json:"version"`
	Renders   int            `json:"renders"`
	Drawn     bool           `json:"drawn"`
	Records   types.Snapshot `json:"records"`
	LastError string         `json:"last_error,omitempty"`
}

func (a *DashboardAPI) Status(w http.ResponseWriter, r *http.Request) {
	v, err := a.status.Status(r.Context())
	if err != nil {
		writeFailure(w, http.StatusServiceUnavailable, err)
		return
	}
	resp := statusResponse{
		Title:   v.Title,
		Version: v.Version,
		Renders: v.Renders,
		Drawn:   v.HandleID != "",
		Records: v.Snapshot,
	}
	if v.LastError != nil {
		resp.LastError = v.LastError.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
