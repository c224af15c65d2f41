package marketdata

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

// Fixtures is the YAML layout of a static price file:
//
//	prices:
//	  - {product: urea, region: midwest, value: 450, unit: ton}
//	  - {product: corn, value: 4.85, unit: bu}
//	history:
//	  urea: [430, 436, 441, 447, 450]
//
// An empty region matches every region. History values are daily, most
// recent last.
type Fixtures struct {
	Prices  []domain.Price       `yaml:"prices"`
	History map[string][]float64 `yaml:"history"`
}

// Static sirve precios desde fixtures en memoria. Used by -dry-run and tests.
type Static struct {
	fx  Fixtures
	now func() time.Time
}

// NewStatic crea un proveedor estático.
func NewStatic(fx Fixtures) *Static {
	return &Static{fx: fx, now: time.Now}
}

// LoadStatic lee un fichero de fixtures YAML.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("marketdata.LoadStatic: read %s: %w", path, err)
	}
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("marketdata.LoadStatic: parse %s: %w", path, err)
	}
	return NewStatic(fx), nil
}

// lookup prefers an exact region match over a region-less quote.
func (s *Static) lookup(product, region string) (domain.Price, bool) {
	var fallback *domain.Price
	for i := range s.fx.Prices {
		p := &s.fx.Prices[i]
		if !strings.EqualFold(p.Product, product) {
			continue
		}
		if strings.EqualFold(p.Region, region) {
			return *p, true
		}
		if p.Region == "" && fallback == nil {
			fallback = p
		}
	}
	if fallback != nil {
		out := *fallback
		out.Region = region
		return out, true
	}
	return domain.Price{}, false
}

func (s *Static) CurrentPrice(_ context.Context, product, region string) (domain.Price, bool, error) {
	p, ok := s.lookup(product, region)
	if !ok {
		return domain.Price{}, false, nil
	}
	if p.AsOf.IsZero() {
		p.AsOf = s.now().UTC()
	}
	return p, true, nil
}

func (s *Static) PriceHistory(_ context.Context, product, region string, days int) ([]domain.Price, error) {
	values := s.fx.History[strings.ToLower(product)]
	if days > 0 && len(values) > days {
		values = values[len(values)-days:]
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	out := make([]domain.Price, len(values))
	for i, v := range values {
		out[i] = domain.Price{
			Product: product,
			Region:  region,
			Value:   v,
			AsOf:    today.AddDate(0, 0, i-len(values)+1),
		}
	}
	return out, nil
}

func (s *Static) CommodityPrices(_ context.Context, crops []string, region string) (map[string]domain.Price, error) {
	out := make(map[string]domain.Price, len(crops))
	for _, c := range crops {
		if p, ok := s.lookup(c, region); ok && p.Value > 0 {
			out[c] = p
		}
	}
	return out, nil
}

func sortByAsOf(prices []domain.Price) {
	sort.SliceStable(prices, func(i, j int) bool { return prices[i].AsOf.Before(prices[j].AsOf) })
}
