package websink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/score-dashboard/internal/engine"
	"github.com/DoyleJ11/score-dashboard/internal/palette"
	"github.com/DoyleJ11/score-dashboard/internal/sink"
	"github.com/DoyleJ11/score-dashboard/pkg/types"
)

func recvMessage(t *testing.T, ch <-chan []byte) types.ServerMessage {
	t.Helper()
	select {
	case payload := <-ch:
		var msg types.ServerMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		return msg
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timed out waiting for message")
		return types.ServerMessage{}
	}
}

func newSpec() engine.ChartSpec {
	snap := types.Snapshot{{Name: "VIC", Score: 3}, {Name: "NARBONA", Score: 5}}
	return engine.BuildSpec(engine.NewState("Puntos", snap), palette.NewDefault())
}

func TestCreate_PushesRenderAndReplaysToLateJoiners(t *testing.T) {
	s, err := New("Puntos")
	require.NoError(t, err)

	early := make(chan []byte, 4)
	s.Join("early", early)

	h, err := s.Create(context.Background(), newSpec())
	require.NoError(t, err)

	msg := recvMessage(t, early)
	assert.Equal(t, types.MsgRender, msg.Type)
	assert.Equal(t, h.ID(), msg.ChartID)
	require.NotNil(t, msg.Chart)
	assert.Equal(t, "bar", msg.Chart.Type)
	assert.Equal(t, []string{"VIC", "NARBONA"}, msg.Chart.Labels)
	assert.Equal(t, []float64{3, 5}, msg.Chart.Dataset.Data)
	assert.Equal(t, "rgba(0, 123, 255, 0.8)", msg.Chart.Dataset.BackgroundColor[0])
	assert.False(t, msg.Chart.Options.LegendDisplay)
	assert.Equal(t, 24, msg.Chart.Options.FontSize)

	late := make(chan []byte, 4)
	s.Join("late", late)
	assert.Equal(t, h.ID(), recvMessage(t, late).ChartID)
}

func TestDestroy_PushesDestroyOnce(t *testing.T) {
	s, err := New("Puntos")
	require.NoError(t, err)

	out := make(chan []byte, 4)
	s.Join("c1", out)

	h, err := s.Create(context.Background(), newSpec())
	require.NoError(t, err)
	_ = recvMessage(t, out)

	require.NoError(t, h.Destroy())
	msg := recvMessage(t, out)
	assert.Equal(t, types.MsgDestroy, msg.Type)
	assert.Equal(t, h.ID(), msg.ChartID)

	assert.ErrorIs(t, h.Destroy(), sink.ErrDestroyed)

	// Nothing to replay once the chart is gone.
	late := make(chan []byte, 1)
	s.Join("late", late)
	select {
	case p := <-late:
		t.Fatalf("unexpected replay %s", p)
	default:
	}
}

func TestShowError(t *testing.T) {
	s, err := New("Puntos")
	require.NoError(t, err)

	out := make(chan []byte, 4)
	s.Join("c1", out)
	s.ShowError("Puntos", errors.New("sink exploded"))

	msg := recvMessage(t, out)
	assert.Equal(t, types.MsgError, msg.Type)
	assert.Equal(t, "sink exploded", msg.Error)
}

func TestBroadcast_DropsSlowClient(t *testing.T) {
	s, err := New("Puntos")
	require.NoError(t, err)

	slow := make(chan []byte) // never read
	s.Join("slow", slow)
	_, err = s.Create(context.Background(), newSpec())
	require.NoError(t, err)

	assert.Equal(t, 0, s.Clients())
	_, ok := <-slow
	assert.False(t, ok)
}

func TestPageHandlers(t *testing.T) {
	s, err := New("Puntos")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.HandleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Puntos</title>")
	assert.Contains(t, rec.Body.String(), `src="/app.js"`)

	rec = httptest.NewRecorder()
	s.HandleScript(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	assert.Equal(t, "application/javascript", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "WebSocket")
}
