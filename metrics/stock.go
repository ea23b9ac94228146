package metrics

import "screedflow/models"

// IsCritical reports stock strictly below the minimum. Equal to the minimum is not critical.
func IsCritical(m models.Material) bool {
	return m.Stock < m.MinimumRequired
}

func CriticalMaterials(materials []models.Material) []models.Material {
	var out []models.Material
	for _, m := range materials {
		if IsCritical(m) {
			out = append(out, m)
		}
	}
	return out
}

// RequiredQuantity is the amount of a material needed to process area.
func RequiredQuantity(m models.Material, area float64) float64 {
	return area * m.UsagePerSqm
}

// Shortfall is how much more stock is needed to process area, never negative.
func Shortfall(m models.Material, area float64) float64 {
	if short := RequiredQuantity(m, area) - m.Stock; short > 0 {
		return short
	}
	return 0
}

// DaysOfCover is how many days current stock lasts at the target daily throughput.
func DaysOfCover(m models.Material, targetDailySqm float64) float64 {
	daily := m.UsagePerSqm * targetDailySqm
	if daily <= 0 {
		return 0
	}
	return m.Stock / daily
}

type MaterialStatus struct {
	MaterialID  string  `json:"material_id" example:"m2"`
	Name        string  `json:"name" example:"Sharp Sand"`
	Unit        string  `json:"unit" example:"Tonnes"`
	Stock       float64 `json:"stock" example:"8"`
	Minimum     float64 `json:"minimum_required" example:"10"`
	Critical    bool    `json:"critical" example:"true"`
	Shortfall   float64 `json:"shortfall" example:"142"`
	DaysOfCover float64 `json:"days_of_cover" example:"0.4"`
}

// StockReport evaluates every material against the remaining area and daily target.
func StockReport(materials []models.Material, remainingArea, targetDailySqm float64) []MaterialStatus {
	out := make([]MaterialStatus, 0, len(materials))
	for _, m := range materials {
		out = append(out, MaterialStatus{
			MaterialID:  m.ID,
			Name:        m.Name,
			Unit:        m.Unit,
			Stock:       m.Stock,
			Minimum:     m.MinimumRequired,
			Critical:    IsCritical(m),
			Shortfall:   Shortfall(m, remainingArea),
			DaysOfCover: DaysOfCover(m, targetDailySqm),
		})
	}
	return out
}
