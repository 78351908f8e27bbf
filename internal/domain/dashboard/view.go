package dashboard

import (
	"html"
	"strconv"

	"github.com/microcosm-cc/bluemonday"
)

// View is the render-ready projection of a ViewState, shared by the HTML
// page, the JSON API and the PDF report.
type View struct {
	Phase        Phase  `json:"phase"`
	Loading      bool   `json:"loading"`
	ShowError    bool   `json:"showError"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	HasData      bool   `json:"hasData"`

	CompanyRevenue Bar    `json:"companyRevenue"`
	CompanyCS      Bar    `json:"companyCs"`
	CLevel         Circle `json:"cLevel"`
	DivisionTST    Metric `json:"divisionTst"`
	DivisionPM     Metric `json:"divisionPm"`
	QualityScore   Rating `json:"qualityScore"`

	Summary SummaryView `json:"summary"`
	Rows    []RowView   `json:"rows"`
}

type Metric struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// Bar is a horizontal progress bar; Width is the CSS percentage.
type Bar struct {
	Metric
	Width float64 `json:"width"`
}

type Circle struct {
	Metric
	Radius float64        `json:"radius"`
	Stroke StrokeGeometry `json:"stroke"`
}

// Rating is a 5-point score shown both as a bar and as a small circle.
type Rating struct {
	Value  float64 `json:"value"`
	Label  string  `json:"label"`
	Bar    Bar     `json:"bar"`
	Circle Circle  `json:"circle"`
}

type SummaryView struct {
	TotalKPIs  string `json:"totalKpis"`
	AvgScore   string `json:"avgScore"`
	ActiveKPIs string `json:"activeKpis"`
	Employees  string `json:"employees"`
	Pending    string `json:"pending"`
}

type RowView struct {
	Name       string `json:"name"`
	Target     string `json:"target"`
	Achieved   string `json:"achieved"`
	Role       string `json:"role"`
	Alignment  string `json:"alignment"`
	Status     string `json:"status"`
	BadgeClass string `json:"badgeClass"`
}

const errorBannerMessage = "Failed to load dashboard data. Showing sample data instead."

func BuildView(state ViewState) View {
	view := View{
		Phase:   state.Phase(),
		Loading: state.Loading,
	}
	if state.Err != nil && !state.Loading {
		view.ShowError = true
		view.ErrorMessage = errorBannerMessage
	}
	if state.Loading || state.Data == nil {
		return view
	}

	data := state.Data
	view.HasData = true
	view.CompanyRevenue = bar(data.CompanyRevenue)
	view.CompanyCS = bar(data.CompanyCS)
	view.CLevel = circle(data.CLevel, data.CLevel, LargeRadius)
	view.DivisionTST = percentMetric(data.DivisionTST)
	view.DivisionPM = percentMetric(data.DivisionPM)
	ratingLabel := formatNumber(data.IndividualQualityVal) + "/5"
	ratingCircle := circle(data.IndividualQualityVal, RatingPercent(data.IndividualQualityVal, RatingScale), SmallRadius)
	ratingCircle.Label = ratingLabel
	view.QualityScore = Rating{
		Value:  data.IndividualQualityVal,
		Label:  ratingLabel,
		Bar:    bar(data.IndividualQualityPct),
		Circle: ratingCircle,
	}
	view.Summary = SummaryView{
		TotalKPIs:  formatNumber(data.Summary.TotalKPIs) + "%",
		AvgScore:   formatNumber(data.Summary.AvgScore) + "/5",
		ActiveKPIs: formatNumber(data.Summary.ActiveKPIs),
		Employees:  formatNumber(data.Summary.Employees),
		Pending:    formatNumber(data.Summary.Pending),
	}
	view.Rows = make([]RowView, 0, len(data.KPIs))
	for _, kpi := range data.KPIs {
		status := plainText(kpi.Status)
		view.Rows = append(view.Rows, RowView{
			Name:       plainText(kpi.Name),
			Target:     formatNumber(kpi.Target) + "%",
			Achieved:   formatNumber(kpi.Achieved) + "%",
			Role:       plainText(kpi.Role),
			Alignment:  plainText(kpi.Alignment),
			Status:     status,
			BadgeClass: StatusBadgeClass(status),
		})
	}
	return view
}

func percentMetric(value float64) Metric {
	return Metric{Value: value, Label: formatNumber(value) + "%"}
}

func bar(value float64) Bar {
	return Bar{Metric: percentMetric(value), Width: ClampPercent(value)}
}

func circle(value, percent, radius float64) Circle {
	return Circle{Metric: percentMetric(value), Radius: radius, Stroke: ComputeStroke(percent, radius)}
}

var strictPolicy = bluemonday.StrictPolicy()

// plainText drops any markup Odoo's rich text fields leave in row labels.
// The HTML page escapes on output and the PDF wants raw text.
func plainText(value string) string {
	return html.UnescapeString(strictPolicy.Sanitize(value))
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
