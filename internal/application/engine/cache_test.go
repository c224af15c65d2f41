package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/agrisim/internal/domain"
	"github.com/alejandrodnm/agrisim/internal/ports"
)

type hitCounter struct {
	ports.NopMetrics
	hits int
}

func (h *hitCounter) CacheHit() { h.hits++ }

func TestResultCache_KeyIgnoresAnalysisID(t *testing.T) {
	c := newResultCache(time.Minute, 0)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	a := domain.OptimizationRequest{AnalysisID: "a", CropType: "corn", FieldAcres: 100}
	b := a
	b.AnalysisID = "b"

	ka, err := c.key(a, now)
	require.NoError(t, err)
	kb, err := c.key(b, now)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)

	b.FieldAcres = 101
	kc, err := c.key(b, now)
	require.NoError(t, err)
	assert.NotEqual(t, ka, kc)
}

func TestResultCache_KeyBucket(t *testing.T) {
	c := newResultCache(time.Hour, 15*time.Minute)
	req := domain.OptimizationRequest{CropType: "corn"}
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	k0, _ := c.key(req, t0)
	k1, _ := c.key(req, t0.Add(14*time.Minute))
	k2, _ := c.key(req, t0.Add(15*time.Minute))
	assert.Equal(t, k0, k1)
	assert.NotEqual(t, k0, k2)
}

func TestResultCache_TTL(t *testing.T) {
	c := newResultCache(time.Minute, 0)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	c.put("k", domain.AnalysisResult{ID: "r1"}, now)
	got, ok := c.get("k", now.Add(30*time.Second))
	require.True(t, ok)
	assert.Equal(t, "r1", got.ID)

	_, ok = c.get("k", now.Add(2*time.Minute))
	assert.False(t, ok)
	assert.Equal(t, 0, c.size())
}

func TestResultCache_PutPurgesExpired(t *testing.T) {
	c := newResultCache(time.Minute, 0)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	c.put("old", domain.AnalysisResult{ID: "old"}, now)
	c.put("new", domain.AnalysisResult{ID: "new"}, now.Add(5*time.Minute))
	assert.Equal(t, 1, c.size())
}

func TestEngine_CacheExpiresWithClock(t *testing.T) {
	hc := &hitCounter{}
	e := New(Config{CacheTTL: time.Minute}, nil, nil, nil, hc)
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return clock }

	seed := uint64(7)
	req := domain.OptimizationRequest{
		FieldAcres:           50,
		CropType:             "soybeans",
		ExpectedYieldPerAcre: 55,
		CropPrice:            12,
		Fertilizers: []domain.FertilizerRequirement{
			{Product: "potash", RateLbsPerAcre: 100, PriceUnit: "ton", PricePerUnit: 500},
		},
		Iterations:      1000,
		PathsPerProduct: 2,
		HorizonDays:     10,
		ScenarioTypes:   []domain.ScenarioType{domain.ScenarioBaseline},
		Seed:            &seed,
	}

	_, err := e.Analyze(t.Context(), req)
	require.NoError(t, err)
	_, err = e.Analyze(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, hc.hits)

	clock = clock.Add(2 * time.Minute)
	_, err = e.Analyze(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, hc.hits)
	assert.Equal(t, 1, e.cache.size())
}

func TestResultCache_GetReturnsCopy(t *testing.T) {
	c := newResultCache(time.Minute, 0)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	in := domain.AnalysisResult{ID: "r1", Recommendations: []string{"a"}, Errors: []string{"e"}}
	c.put("k", in, now)
	in.Recommendations[0] = "mutated"

	got, ok := c.get("k", now)
	require.True(t, ok)
	assert.Equal(t, "a", got.Recommendations[0])

	got.Errors[0] = "mutated"
	again, _ := c.get("k", now)
	assert.Equal(t, "e", again.Errors[0])
}
