package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrEmptyName = errors.New("score record has empty name")
var ErrNegativeScore = errors.New("score record has negative score")

// ScoreRecord is one bar on the chart. Extra fields on the wire (team_id, id)
// are ignored.
type ScoreRecord struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Snapshot is a complete ordered set of score records. Order is display order and
// duplicate names are kept as separate entries.
type Snapshot []ScoreRecord

func (r ScoreRecord) Validate() error {
	if r.Name == "" {
		return ErrEmptyName
	}
	if r.Score < 0 {
		return fmt.Errorf("%w: %s=%v", ErrNegativeScore, r.Name, r.Score)
	}
	return nil
}

// DecodeSnapshot parses a JSON array of {name, score}. A JSON null decodes to an
// empty snapshot.
func DecodeSnapshot(raw []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	if snap == nil {
		snap = Snapshot{}
	}
	for i, r := range snap {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return snap, nil
}

// Clone returns a copy that shares nothing with s.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}
