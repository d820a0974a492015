package engine

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/score-dashboard/pkg/types"
)

var ErrMalformedFrame = errors.New("malformed feed frame")
var ErrUnsupportedCommand = errors.New("unsupported command")

// State is what the chart component owns: its title and the latest snapshot.
type State struct {
	Title    string
	Snapshot types.Snapshot
	Version  int
}

type CommandType string

const (
	CmdFeedFrame CommandType = "FeedFrame"
)

/*
	CmdFeedFrame -> EvtSnapshotReplaced (frame decoded) or ErrMalformedFrame (state kept)
*/

type Command struct {
	Type CommandType
	Raw  []byte
}

type EventType string

const (
	EvtSnapshotReplaced EventType = "SnapshotReplaced"
)

type Event struct {
	Type    EventType
	Version int
	Records int
}

// Apply is pure: on error the returned state is s untouched.
func Apply(s State, cmd Command) ([]Event, State, error) {
	var next types.Snapshot

	switch cmd.Type {
	case CmdFeedFrame:
		snap, err := types.DecodeSnapshot(cmd.Raw)
		if err != nil {
			return nil, s, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		next = snap

	default:
		return nil, s, ErrUnsupportedCommand
	}

	newState := s
	newState.Snapshot = next
	newState.Version = s.Version + 1

	return []Event{{
		Type:    EvtSnapshotReplaced,
		Version: newState.Version,
		Records: len(next),
	}}, newState, nil
}
