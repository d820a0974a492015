package types

// Server -> browser messages on the dashboard socket.
//
// Render:
//   chart_id: string
//   chart:    ChartConfig (bar chart, one dataset, per-bar colors)
//
// Destroy:
//   chart_id: string
//
// Error:
//   title: string
//   error: string

type MessageType string

const (
	MsgRender  MessageType = "Render"
	MsgDestroy MessageType = "Destroy"
	MsgError   MessageType = "Error"
)

type ServerMessage struct {
	Type    MessageType  `json:"type"`
	ChartID string       `json:"chart_id,omitempty"`
	Chart   *ChartConfig `json:"chart,omitempty"`
	Title   string       `json:"title,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// ChartConfig mirrors the Chart.js config shape the dashboard page consumes.
type ChartConfig struct {
	Type    string       `json:"type"`
	Title   string       `json:"title"`
	Labels  []string     `json:"labels"`
	Dataset Dataset      `json:"dataset"`
	Options ChartOptions `json:"options"`
}

type Dataset struct {
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor"`
	BorderWidth     int       `json:"borderWidth"`
}

type ChartOptions struct {
	LegendDisplay   bool   `json:"legendDisplay"`
	DataLabelAnchor string `json:"dataLabelAnchor"`
	DataLabelAlign  string `json:"dataLabelAlign"`
	FontSize        int    `json:"fontSize"`
	BeginAtZero     bool   `json:"beginAtZero"`
}
