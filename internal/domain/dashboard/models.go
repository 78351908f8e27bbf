package dashboard

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Payload is the result of employee.performance.get_dashboard_data. The
// server is trusted for shape: decoding never fails on a missing or oddly
// typed field, it just leaves the zero value behind.
type Payload struct {
	CompanyRevenue       float64 `json:"company_revenue"`
	CompanyCS            float64 `json:"company_cs"`
	CLevel               float64 `json:"c_level"`
	DivisionTST          float64 `json:"division_tst"`
	DivisionPM           float64 `json:"division_pm"`
	IndividualQualityVal float64 `json:"individual_quality_val"`
	IndividualQualityPct float64 `json:"individual_quality_pct"`
	Summary              Summary `json:"summary"`
	KPIs                 []KPI   `json:"kpis"`
}

type Summary struct {
	TotalKPIs  float64 `json:"total_kpis"`
	AvgScore   float64 `json:"avg_score"`
	ActiveKPIs float64 `json:"active_kpis"`
	Employees  float64 `json:"employees"`
	Pending    float64 `json:"pending"`
}

type KPI struct {
	Name      string  `json:"name"`
	Target    float64 `json:"target"`
	Achieved  float64 `json:"achieved"`
	Role      string  `json:"role"`
	Alignment string  `json:"alignment"`
	Status    string  `json:"status"`
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Payload{
		CompanyRevenue:       number(raw["company_revenue"]),
		CompanyCS:            number(raw["company_cs"]),
		CLevel:               number(raw["c_level"]),
		DivisionTST:          number(raw["division_tst"]),
		DivisionPM:           number(raw["division_pm"]),
		IndividualQualityVal: number(raw["individual_quality_val"]),
		IndividualQualityPct: number(raw["individual_quality_pct"]),
	}
	if summary, ok := raw["summary"].(map[string]any); ok {
		p.Summary = Summary{
			TotalKPIs:  number(summary["total_kpis"]),
			AvgScore:   number(summary["avg_score"]),
			ActiveKPIs: number(summary["active_kpis"]),
			Employees:  number(summary["employees"]),
			Pending:    number(summary["pending"]),
		}
	}
	if rows, ok := raw["kpis"].([]any); ok {
		p.KPIs = make([]KPI, 0, len(rows))
		for _, item := range rows {
			row, ok := item.(map[string]any)
			if !ok {
				continue
			}
			p.KPIs = append(p.KPIs, KPI{
				Name:      text(row["name"]),
				Target:    number(row["target"]),
				Achieved:  number(row["achieved"]),
				Role:      text(row["role"]),
				Alignment: text(row["alignment"]),
				Status:    text(row["status"]),
			})
		}
	}
	return nil
}

// Odoo serialises empty char and numeric fields as false.
func number(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func text(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Fallback is the sample payload shown when the live fetch fails. Every call
// returns a fresh copy.
func Fallback() *Payload {
	return &Payload{
		CompanyRevenue:       18,
		CompanyCS:            92,
		CLevel:               94,
		DivisionTST:          97,
		DivisionPM:           98,
		IndividualQualityVal: 4.2,
		IndividualQualityPct: 84,
		Summary: Summary{
			TotalKPIs:  87,
			AvgScore:   4.2,
			ActiveKPIs: 23,
			Employees:  156,
			Pending:    8,
		},
		KPIs: []KPI{
			{Name: "Revenue Target", Target: 100, Achieved: 85, Role: "CEO", Alignment: "Company", Status: "On Track"},
			{Name: "Customer Satisfaction", Target: 95, Achieved: 92, Role: "COO", Alignment: "Company", Status: "Achieved"},
			{Name: "Job Completion Rate", Target: 90, Achieved: 94, Role: "C-Level", Alignment: "C Level", Status: "Exceeded"},
		},
	}
}
