package rightsizing

import (
	"fmt"
	"sort"
)

// Recommendation is the fully-populated record handed to the presentation
// layer. Each scoring run produces complete, replaceable records; nothing is
// partially updated.
type Recommendation struct {
	ResourceID             string    `json:"resource_id"`
	CurrentType            string    `json:"current_type"`
	RecommendedType        string    `json:"recommended_type"`
	CurrentMonthlyCost     float64   `json:"current_monthly_cost"`
	RecommendedMonthlyCost float64   `json:"recommended_monthly_cost"`
	MonthlySavings         float64   `json:"monthly_savings"`
	SavingsPct             float64   `json:"savings_pct"`
	RequiredVCPU           float64   `json:"required_vcpu"`
	RequiredMemoryGB       float64   `json:"required_memory_gb"`
	RiskLevel              RiskLevel `json:"risk_level"`
	Confidence             float64   `json:"confidence"`
	Reasoning              string    `json:"reasoning"`
}

// Report is a sorted batch of recommendations plus the headline number.
type Report struct {
	Recommendations       []Recommendation `json:"recommendations"`
	TotalPotentialSavings float64          `json:"total_potential_savings"`
}

// Assemble renders one recommendation from a match and its risk assessment.
func Assemble(match *Match, headroom float64) Recommendation {
	level, confidence := AssessRisk(match)

	memNote := "memory metrics unavailable, sized on CPU only"
	if !match.MemoryDegraded {
		memNote = fmt.Sprintf("p95 memory %.1f%%", deref(match.Profile.P95Mem))
	}
	reasoning := fmt.Sprintf(
		"CPU averages %.1f%% with p95 at %.1f%%; %s. With %.0f%% headroom the workload needs %.2f vCPU, so %s covers it. Switching from %s saves $%.2f/month (%.1f%%).",
		match.Profile.AvgCPU, match.Profile.P95CPU, memNote,
		headroom*100, match.RequiredVCPU, match.Recommended.TypeName,
		match.Current.TypeName, match.MonthlySavings, match.SavingsPct)

	return Recommendation{
		ResourceID:             match.Profile.ResourceID,
		CurrentType:            match.Current.TypeName,
		RecommendedType:        match.Recommended.TypeName,
		CurrentMonthlyCost:     match.CurrentMonthly,
		RecommendedMonthlyCost: match.RecommendedMonthly,
		MonthlySavings:         match.MonthlySavings,
		SavingsPct:             match.SavingsPct,
		RequiredVCPU:           match.RequiredVCPU,
		RequiredMemoryGB:       match.RequiredMemoryGB,
		RiskLevel:              level,
		Confidence:             confidence,
		Reasoning:              reasoning,
	}
}

// BuildReport sorts recommendations descending by monthly savings and sums
// the total. The input slice is not mutated.
func BuildReport(recommendations []Recommendation) Report {
	sorted := make([]Recommendation, len(recommendations))
	copy(sorted, recommendations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MonthlySavings > sorted[j].MonthlySavings
	})

	var total float64
	for _, rec := range sorted {
		total += rec.MonthlySavings
	}
	return Report{Recommendations: sorted, TotalPotentialSavings: total}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
