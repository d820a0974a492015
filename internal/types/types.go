package types

type Team struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Test struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type TeamScore struct {
	ID     int `json:"id"`
	TeamID int `json:"team_id"`
	TestID int `json:"test_id"`
	Score  int `json:"score"`
}

// GroupedScore is one row of /team_scores_by_team and of every feed frame.
type GroupedScore struct {
	TeamID int    `json:"team_id"`
	Score  int    `json:"score"`
	Name   string `json:"name"`
}

type NameRequest struct {
	Name string `json:"name"`
}

type ScoreRequest struct {
	TeamID int `json:"team_id"`
	TestID int `json:"test_id"`
	Score  int `json:"score"`
}

type StatusResponse struct {
	Status  string `json:"status"` // "success" | "failure"
	ID      int    `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}
