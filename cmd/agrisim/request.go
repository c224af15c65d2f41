package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/agrisim/config"
	"github.com/alejandrodnm/agrisim/internal/application/engine"
	"github.com/alejandrodnm/agrisim/internal/application/optimization"
	"github.com/alejandrodnm/agrisim/internal/domain"
)

// loadRequest lee una petición de análisis. JSON también vale: es YAML válido.
func loadRequest(path string) (domain.OptimizationRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.OptimizationRequest{}, fmt.Errorf("loadRequest: read %q: %w", path, err)
	}
	var req domain.OptimizationRequest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return domain.OptimizationRequest{}, fmt.Errorf("loadRequest: parse %q: %w", path, err)
	}
	return req, nil
}

// engineConfig traduce la sección engine del config.
func engineConfig(cfg *config.Config) engine.Config {
	e := cfg.Engine
	return engine.Config{
		Workers:     e.Workers,
		Timeout:     e.Timeout,
		CacheTTL:    e.CacheTTL,
		CacheBucket: e.CacheBucket,
		HistoryDays: e.HistoryDays,
		Materiality: e.Materiality,
		Policy: optimization.Policy{
			RiskDiscount:         e.RiskDiscount,
			DefaultBudgetPerAcre: e.DefaultBudgetPerAcre,
			NitrogenReference:    e.NitrogenReference,
			BudgetWeights:        budgetWeights(e.BudgetWeights),
		},
	}
}

func budgetWeights(in map[string]float64) map[domain.BudgetCategory]float64 {
	if len(in) == 0 {
		return nil
	}
	known := make(map[domain.BudgetCategory]bool, len(domain.BudgetCategories))
	for _, c := range domain.BudgetCategories {
		known[c] = true
	}
	out := make(map[domain.BudgetCategory]float64, len(in))
	for k, w := range in {
		c := domain.BudgetCategory(k)
		if !known[c] {
			slog.Warn("unknown budget category ignored", "category", k)
			continue
		}
		out[c] = w
	}
	return out
}
