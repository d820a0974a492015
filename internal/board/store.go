package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/buntdb"

	"github.com/DoyleJ11/score-dashboard/internal/types"
)

var ErrNotFound = errors.New("not found")
var ErrDuplicateName = errors.New("name already exists")
var ErrEmptyName = errors.New("name is required")
var ErrNegativeScore = errors.New("score must not be negative")

const (
	prefixTeam  = "team:"
	prefixTest  = "test:"
	prefixScore = "score:"
	keySeq      = "seq:"
)

// store keeps teams, tests and scores in an in-memory buntdb. Keys carry a
// zero-padded id so ascending key order is id order.
type store struct {
	db *buntdb.DB
}

func openStore() (*store, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open score store: %w", err)
	}
	return &store{db: db}, nil
}

func (s *store) close() error { return s.db.Close() }

func key(prefix string, id int) string { return fmt.Sprintf("%s%010d", prefix, id) }

func nextID(tx *buntdb.Tx, prefix string) (int, error) {
	cur := 0
	v, err := tx.Get(keySeq + prefix)
	switch {
	case errors.Is(err, buntdb.ErrNotFound):
	case err != nil:
		return 0, err
	default:
		if cur, err = strconv.Atoi(v); err != nil {
			return 0, err
		}
	}
	cur++
	if _, _, err := tx.Set(keySeq+prefix, strconv.Itoa(cur), nil); err != nil {
		return 0, err
	}
	return cur, nil
}

func put(tx *buntdb.Tx, k string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _, err = tx.Set(k, string(data), nil)
	return err
}

func scan[T any](tx *buntdb.Tx, prefix string) ([]T, error) {
	out := []T{}
	var decodeErr error
	err := tx.AscendKeys(prefix+"*", func(_, value string) bool {
		var item T
		if decodeErr = json.Unmarshal([]byte(value), &item); decodeErr != nil {
			return false
		}
		out = append(out, item)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, decodeErr
}

func (s *store) addNamed(prefix, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}

	var id int
	err := s.db.Update(func(tx *buntdb.Tx) error {
		existing, err := scan[types.Team](tx, prefix)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.Name == name {
				return fmt.Errorf("%w: %s", ErrDuplicateName, name)
			}
		}
		if id, err = nextID(tx, prefix); err != nil {
			return err
		}
		return put(tx, key(prefix, id), types.Team{ID: id, Name: name})
	})
	return id, err
}

func (s *store) addTeam(name string) (int, error) { return s.addNamed(prefixTeam, name) }

func (s *store) renameTeam(id int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	return s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(key(prefixTeam, id)); err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return fmt.Errorf("team %d: %w", id, ErrNotFound)
			}
			return err
		}
		teams, err := scan[types.Team](tx, prefixTeam)
		if err != nil {
			return err
		}
		for _, t := range teams {
			if t.ID != id && t.Name == name {
				return fmt.Errorf("%w: %s", ErrDuplicateName, name)
			}
		}
		return put(tx, key(prefixTeam, id), types.Team{ID: id, Name: name})
	})
}

// deleteTeam removes the team and every score recorded for it, so grouped
// totals never reference a missing team.
func (s *store) deleteTeam(id int) error {
	return s.deleteWithScores(prefixTeam, "team", id, func(sc types.TeamScore) bool { return sc.TeamID == id })
}

// deleteTest removes the test and every score recorded against it.
func (s *store) deleteTest(id int) error {
	return s.deleteWithScores(prefixTest, "test", id, func(sc types.TeamScore) bool { return sc.TestID == id })
}

func (s *store) deleteWithScores(prefix, kind string, id int, owned func(types.TeamScore) bool) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Delete(key(prefix, id)); err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
			}
			return err
		}
		scores, err := scan[types.TeamScore](tx, prefixScore)
		if err != nil {
			return err
		}
		// Keys are collected first; buntdb forbids deleting while iterating.
		for _, sc := range scores {
			if !owned(sc) {
				continue
			}
			if _, err := tx.Delete(key(prefixScore, sc.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *store) addTest(name string) (int, error) { return s.addNamed(prefixTest, name) }

func (s *store) teams() (out []types.Team, err error) {
	err = s.db.View(func(tx *buntdb.Tx) error {
		out, err = scan[types.Team](tx, prefixTeam)
		return err
	})
	return out, err
}

func (s *store) tests() (out []types.Test, err error) {
	err = s.db.View(func(tx *buntdb.Tx) error {
		out, err = scan[types.Test](tx, prefixTest)
		return err
	})
	return out, err
}

func (s *store) scores() (out []types.TeamScore, err error) {
	err = s.db.View(func(tx *buntdb.Tx) error {
		out, err = scan[types.TeamScore](tx, prefixScore)
		return err
	})
	return out, err
}

func (s *store) addScore(req types.ScoreRequest) (int, error) {
	if req.Score < 0 {
		return 0, ErrNegativeScore
	}

	var id int
	err := s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(key(prefixTeam, req.TeamID)); err != nil {
			return fmt.Errorf("team %d: %w", req.TeamID, ErrNotFound)
		}
		if _, err := tx.Get(key(prefixTest, req.TestID)); err != nil {
			return fmt.Errorf("test %d: %w", req.TestID, ErrNotFound)
		}
		var err error
		if id, err = nextID(tx, prefixScore); err != nil {
			return err
		}
		return put(tx, key(prefixScore, id), types.TeamScore{ID: id, TeamID: req.TeamID, TestID: req.TestID, Score: req.Score})
	})
	return id, err
}

func (s *store) deleteScore(id int) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Delete(key(prefixScore, id)); err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return fmt.Errorf("score %d: %w", id, ErrNotFound)
			}
			return err
		}
		return nil
	})
}

// grouped sums scores per team. Teams appear in the order their first score
// was recorded; teams with no scores are left out.
func (s *store) grouped() ([]types.GroupedScore, error) {
	var out []types.GroupedScore
	err := s.db.View(func(tx *buntdb.Tx) error {
		scores, err := scan[types.TeamScore](tx, prefixScore)
		if err != nil {
			return err
		}
		teams, err := scan[types.Team](tx, prefixTeam)
		if err != nil {
			return err
		}
		names := make(map[int]string, len(teams))
		for _, t := range teams {
			names[t.ID] = t.Name
		}

		index := make(map[int]int)
		out = []types.GroupedScore{}
		for _, sc := range scores {
			i, ok := index[sc.TeamID]
			if !ok {
				i = len(out)
				index[sc.TeamID] = i
				out = append(out, types.GroupedScore{TeamID: sc.TeamID, Name: names[sc.TeamID]})
			}
			out[i].Score += sc.Score
		}
		return nil
	})
	return out, err
}
