package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/score-dashboard/internal/board"
	"github.com/DoyleJ11/score-dashboard/internal/types"
)

type FeedAPI struct {
	board *board.Board
	log   *zap.Logger
}

func (a *FeedAPI) ListTeams(w http.ResponseWriter, r *http.Request) {
	v := a.board.View(r.Context())
	if v.Err != nil {
		writeFailure(w, http.StatusServiceUnavailable, v.Err)
		return
	}
	writeJSON(w, http.StatusOK, v.Teams)
}

func (a *FeedAPI) ListTests(w http.ResponseWriter, r *http.Request) {
	v := a.board.View(r.Context())
	if v.Err != nil {
		writeFailure(w, http.StatusServiceUnavailable, v.Err)
		return
	}
	writeJSON(w, http.StatusOK, v.Tests)
}

func (a *FeedAPI) ListScores(w http.ResponseWriter, r *http.Request) {
	v := a.board.View(r.Context())
	if v.Err != nil {
		writeFailure(w, http.StatusServiceUnavailable, v.Err)
		return
	}
	writeJSON(w, http.StatusOK, v.Scores)
}

func (a *FeedAPI) GroupedScores(w http.ResponseWriter, r *http.Request) {
	v := a.board.View(r.Context())
	if v.Err != nil {
		writeFailure(w, http.StatusServiceUnavailable, v.Err)
		return
	}
	writeJSON(w, http.StatusOK, v.Grouped)
}

func (a *FeedAPI) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req types.NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, errors.New("bad json"))
		return
	}
	reply := make(chan board.Result, 1)
	a.respond(w, a.board.Do(r.Context(), board.AddTeam{Name: req.Name, Reply: reply}, reply))
}

func (a *FeedAPI) CreateTest(w http.ResponseWriter, r *http.Request) {
	var req types.NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, errors.New("bad json"))
		return
	}
	reply := make(chan board.Result, 1)
	a.respond(w, a.board.Do(r.Context(), board.AddTest{Name: req.Name, Reply: reply}, reply))
}

const maxFormMemory = 1 << 20

func (a *FeedAPI) RenameTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req types.NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, errors.New("bad json"))
		return
	}
	reply := make(chan board.Result, 1)
	a.respond(w, a.board.Do(r.Context(), board.RenameTeam{ID: id, Name: req.Name, Reply: reply}, reply))
}

func (a *FeedAPI) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	reply := make(chan board.Result, 1)
	a.respond(w, a.board.Do(r.Context(), board.DeleteTeam{ID: id, Reply: reply}, reply))
}

func (a *FeedAPI) DeleteTest(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	reply := make(chan board.Result, 1)
	a.respond(w, a.board.Do(r.Context(), board.DeleteTest{ID: id, Reply: reply}, reply))
}

// CreateScore accepts a urlencoded or multipart form post (team_id, test_id, score) or the same fields as JSON.
func (a *FeedAPI) CreateScore(w http.ResponseWriter, r *http.Request) {
	req, err := decodeScore(r)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err)
		return
	}
	reply := make(chan board.Result, 1)
	a.respond(w, a.board.Do(r.Context(), board.AddScore{Req: req, Reply: reply}, reply))
}

func (a *FeedAPI) DeleteScore(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	reply := make(chan board.Result, 1)
	a.respond(w, a.board.Do(r.Context(), board.DeleteScore{ID: id, Reply: reply}, reply))
}

func urlID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, errors.New("id must be an integer"))
		return 0, false
	}
	return id, true
}

func (a *FeedAPI) respond(w http.ResponseWriter, res board.Result) {
	switch {
	case res.Err == nil:
		writeJSON(w, http.StatusOK, types.StatusResponse{Status: "success", ID: res.ID})
	case errors.Is(res.Err, board.ErrNotFound):
		writeFailure(w, http.StatusNotFound, res.Err)
	case errors.Is(res.Err, board.ErrDuplicateName):
		writeFailure(w, http.StatusConflict, res.Err)
	case errors.Is(res.Err, board.ErrEmptyName), errors.Is(res.Err, board.ErrNegativeScore):
		writeFailure(w, http.StatusBadRequest, res.Err)
	default:
		a.log.Error("board request failed", zap.Error(res.Err))
		writeFailure(w, http.StatusServiceUnavailable, res.Err)
	}
}

func decodeScore(r *http.Request) (types.ScoreRequest, error) {
	var req types.ScoreRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, errors.New("bad json")
		}
		return req, nil
	}

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxFormMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return req, err
	}
	fields := []struct {
		name string
		dst  *int
	}{
		{"team_id", &req.TeamID},
		{"test_id", &req.TestID},
		{"score", &req.Score},
	}
	for _, f := range fields {
		n, err := strconv.Atoi(r.PostForm.Get(f.name))
		if err != nil {
			return req, errors.New(f.name + " must be an integer")
		}
		*f.dst = n
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, types.StatusResponse{Status: "failure", Message: err.Error()})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
