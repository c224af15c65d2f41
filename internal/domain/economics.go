package domain

import "strings"

// economics.go: modelo compartido de coste/ingreso.
//
// Lo usan el generador de escenarios, Monte Carlo, sensibilidad y el optimizador:
//
//	cost_per_acre = Σ rate_lbs_per_acre × price_per_unit / unit_to_lbs
//	cost          = cost_per_acre × acres
//	revenue       = yield_per_acre × crop_price × crop_multiplier × acres
//	profit        = revenue − cost

// unitFactors converts a price unit to pounds.
var unitFactors = map[string]float64{
	"ton":   2000,
	"cwt":   100,
	"lb":    1,
	"lbs":   1,
	"kg":    2.20462,
	"tonne": 2204.62,
}

// UnitToLbs returns how many pounds one price unit holds. An empty unit is
// treated as a short ton, the usual quote for bulk fertilizer.
func UnitToLbs(unit string) (float64, bool) {
	u := strings.ToLower(strings.TrimSpace(unit))
	if u == "" {
		return unitFactors["ton"], true
	}
	f, ok := unitFactors[u]
	return f, ok
}

// nitrogenContent is the N fraction of common products, used for the
// environmental objective when the request does not give one.
var nitrogenContent = map[string]float64{
	"urea":              0.46,
	"anhydrous ammonia": 0.82,
	"anhydrous_ammonia": 0.82,
	"uan28":             0.28,
	"uan32":             0.32,
	"ammonium nitrate":  0.34,
	"ammonium sulfate":  0.21,
	"dap":               0.18,
	"map":               0.11,
	"potash":            0,
	"10-10-10":          0.10,
}

// NitrogenFraction returns the N fraction for the requirement, looking up the
// nutrient table when the request leaves it empty. Unknown products count 0.
func (f FertilizerRequirement) NitrogenFraction() float64 {
	if f.NitrogenContent > 0 {
		return f.NitrogenContent
	}
	return nitrogenContent[strings.ToLower(strings.TrimSpace(f.Product))]
}

// CostInput is one priced fertilizer line for the cost model.
type CostInput struct {
	Product        string  `json:"product"`
	RateLbsPerAcre float64 `json:"rate_lbs_per_acre"`
	PricePerUnit   float64 `json:"price_per_unit"`
	UnitLbs        float64 `json:"unit_lbs"`
	NitrogenFrac   float64 `json:"nitrogen_frac"`
}

// CostPerAcre returns the cost of this line for one acre.
func (c CostInput) CostPerAcre() float64 {
	if c.UnitLbs <= 0 {
		return 0
	}
	return c.RateLbsPerAcre * c.PricePerUnit / c.UnitLbs
}

// FarmModel holds the field-level inputs of the cost/revenue formula.
type FarmModel struct {
	FieldAcres           float64 `json:"field_acres"`
	ExpectedYieldPerAcre float64 `json:"expected_yield_per_acre"`
}

// Economics is the output of one evaluation of the cost/revenue formula.
type Economics struct {
	CostPerAcre    float64
	RevenuePerAcre float64
	TotalCost      float64
	TotalRevenue   float64
	NetProfit      float64
}

// Evaluate computes cost, revenue and profit. cropMultiplier is applied on top
// of cropPrice; pass 1 when the multiplier is already folded into the price.
func (m FarmModel) Evaluate(inputs []CostInput, cropPrice, cropMultiplier float64) Economics {
	var perAcre float64
	for _, in := range inputs {
		perAcre += in.CostPerAcre()
	}
	revPerAcre := m.ExpectedYieldPerAcre * cropPrice * cropMultiplier
	cost := perAcre * m.FieldAcres
	revenue := revPerAcre * m.FieldAcres
	return Economics{
		CostPerAcre:    perAcre,
		RevenuePerAcre: revPerAcre,
		TotalCost:      cost,
		TotalRevenue:   revenue,
		NetProfit:      revenue - cost,
	}
}

// Metrics converts the evaluation into ScenarioMetrics with margin and ROI.
func (e Economics) Metrics() ScenarioMetrics {
	return ScenarioMetrics{
		TotalCost:      e.TotalCost,
		TotalRevenue:   e.TotalRevenue,
		NetProfit:      e.NetProfit,
		MarginPct:      MarginPct(e.NetProfit, e.TotalRevenue),
		ROIPct:         ROIPct(e.NetProfit, e.TotalCost),
		CostPerAcre:    e.CostPerAcre,
		RevenuePerAcre: e.RevenuePerAcre,
	}
}

// MarginPct devuelve profit/revenue en %. 0 si no hay ingresos.
func MarginPct(profit, revenue float64) float64 {
	if revenue <= 0 {
		return 0
	}
	return profit / revenue * 100
}

// ROIPct devuelve profit/cost en %. 0 si no hay coste.
func ROIPct(profit, cost float64) float64 {
	if cost <= 0 {
		return 0
	}
	return profit / cost * 100
}

// BreakEvenYield is the yield per acre at which revenue covers cost.
func BreakEvenYield(costPerAcre, cropPrice float64) float64 {
	if cropPrice <= 0 {
		return 0
	}
	return costPerAcre / cropPrice
}

// NitrogenLbsPerAcre is the N applied per acre by the given lines.
func NitrogenLbsPerAcre(inputs []CostInput) float64 {
	var n float64
	for _, in := range inputs {
		n += in.RateLbsPerAcre * in.NitrogenFrac
	}
	return n
}
