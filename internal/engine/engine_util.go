package engine

import "github.com/DoyleJ11/score-dashboard/pkg/types"

func NewState(title string, initial types.Snapshot) State {
	if initial == nil {
		initial = types.Snapshot{}
	}
	return State{
		Title:    title,
		Snapshot: initial.Clone(),
	}
}
