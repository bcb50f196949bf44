package domain

import "math"

// ArbitrageOpportunity es una diferencia de precio accionable entre oracle y pool.
// Se crea en cada ciclo y nunca se muta. BuyPrice <= SellPrice por construcción.
type ArbitrageOpportunity struct {
	BaseSymbol      string  `json:"baseSymbol"`
	QuoteSymbol     string  `json:"quoteSymbol"`
	BuySource       Source  `json:"buySource"`
	SellSource      Source  `json:"sellSource"`
	BuyPrice        float64 `json:"buyPrice"`
	SellPrice       float64 `json:"sellPrice"`
	SpreadAbsolute  float64 `json:"spreadAbsolute"`
	SpreadPercent   float64 `json:"spreadPercent"`
	EstimatedProfit float64 `json:"estimatedProfit"`
	Confidence      float64 `json:"confidence"`
	DetectedAt      string  `json:"detectedAt"`
}

// Summary son las estadísticas derivadas de la lista de oportunidades de un ciclo.
type Summary struct {
	TotalOpportunities   int     `json:"totalOpportunities"`
	BestSpread           float64 `json:"bestSpread"`
	AverageSpread        float64 `json:"averageSpread"`
	TotalEstimatedProfit float64 `json:"totalEstimatedProfit"`
}

// Summarize calcula el resumen. Todo a cero si no hay oportunidades.
func Summarize(opps []ArbitrageOpportunity) Summary {
	if len(opps) == 0 {
		return Summary{}
	}

	s := Summary{TotalOpportunities: len(opps), BestSpread: math.Inf(-1)}
	var sumSpread float64
	for _, o := range opps {
		s.BestSpread = math.Max(s.BestSpread, o.SpreadPercent)
		sumSpread += o.SpreadPercent
		s.TotalEstimatedProfit += o.EstimatedProfit
	}
	s.AverageSpread = sumSpread / float64(len(opps))
	return s
}
