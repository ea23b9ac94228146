package metrics

import (
	"math"

	"screedflow/models"
)

// MaterialCost forecasts the cost of finishing totalArea at each material's usage rate.
// It is a projection, not a record of money already spent.
func MaterialCost(materials []models.Material, totalArea float64) float64 {
	cost := 0.0
	for _, m := range materials {
		cost += m.UnitCost * (totalArea * m.UsagePerSqm)
	}
	return cost
}

// BudgetBase is the figure material cost is measured against: the material budget,
// or the total budget for baselines that do not split it out.
func BudgetBase(b models.Baselines) float64 {
	if b.MaterialBudget > 0 {
		return b.MaterialBudget
	}
	return b.TotalBudget
}

// BudgetUtilization is cost as a percentage of budget. A zero budget yields 0.
func BudgetUtilization(cost, budget float64) float64 {
	return ratio(cost, budget)
}

// PlannedArea is the area the baselines commit to, or the tasks' planned total when
// the baselines leave it unset.
func PlannedArea(b models.Baselines, tasks []models.Task) float64 {
	if b.PlannedArea > 0 {
		return b.PlannedArea
	}
	return TotalArea(tasks)
}

type Direction string

const (
	DirectionUnder Direction = "under"
	DirectionOver  Direction = "over"
)

// Gauge is a percentage with its health reading. Exactly 100 is healthy.
type Gauge struct {
	Percentage float64   `json:"percentage" example:"6.975"`
	Healthy    bool      `json:"healthy" example:"true"`
	Delta      float64   `json:"delta" example:"93.025"`
	Direction  Direction `json:"direction" example:"under"`
}

func Classify(percentage float64) Gauge {
	g := Gauge{
		Percentage: percentage,
		Healthy:    percentage <= 100,
		Delta:      math.Abs(100 - percentage),
		Direction:  DirectionUnder,
	}
	if !g.Healthy {
		g.Direction = DirectionOver
	}
	return g
}

// BudgetGauge classifies the material-cost forecast of a project against its baselines.
func BudgetGauge(b models.Baselines, materials []models.Material, tasks []models.Task) Gauge {
	cost := MaterialCost(materials, PlannedArea(b, tasks))
	return Classify(BudgetUtilization(cost, BudgetBase(b)))
}
