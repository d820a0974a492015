package engine

import (
	"github.com/samber/lo"

	"github.com/DoyleJ11/score-dashboard/pkg/types"
)

const (
	KindBar = "bar"

	fontSize    = 24
	borderWidth = 1
)

// Colorer resolves a display color for a label. It must return a color for
// every label, known or not.
type Colorer interface {
	Color(name string) string
}

// ChartSpec is everything a rendering sink needs to draw one chart.
// Labels, Values and Colors are index-aligned with the source snapshot.
type ChartSpec struct {
	Title       string
	Kind        string
	Labels      []string
	Values      []float64
	Colors      []string
	ShowLegend  bool
	LabelAnchor string
	LabelAlign  string
	FontSize    int
	BorderWidth int
	BeginAtZero bool
}

func BuildSpec(s State, colors Colorer) ChartSpec {
	labels := lo.Map(s.Snapshot, func(r types.ScoreRecord, _ int) string { return r.Name })
	values := lo.Map(s.Snapshot, func(r types.ScoreRecord, _ int) float64 { return r.Score })

	return ChartSpec{
		Title:       s.Title,
		Kind:        KindBar,
		Labels:      labels,
		Values:      values,
		Colors:      lo.Map(labels, func(name string, _ int) string { return colors.Color(name) }),
		ShowLegend:  false,
		LabelAnchor: "end",
		LabelAlign:  "top",
		FontSize:    fontSize,
		BorderWidth: borderWidth,
		BeginAtZero: true,
	}
}

// Config converts the spec into the wire shape browsers draw from.
func (c ChartSpec) Config() *types.ChartConfig {
	return &types.ChartConfig{
		Type:   c.Kind,
		Title:  c.Title,
		Labels: c.Labels,
		Dataset: types.Dataset{
			Data:            c.Values,
			BackgroundColor: c.Colors,
			BorderWidth:     c.BorderWidth,
		},
		Options: types.ChartOptions{
			LegendDisplay:   c.ShowLegend,
			DataLabelAnchor: c.LabelAnchor,
			DataLabelAlign:  c.LabelAlign,
			FontSize:        c.FontSize,
			BeginAtZero:     c.BeginAtZero,
		},
	}
}
