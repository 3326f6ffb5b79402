package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"carlink/market/internal/models"
)

func request() *models.BuyerRequest {
	return &models.BuyerRequest{
		MinBudget: 10000,
		MaxBudget: 20000,
		Brand:     "Toyota",
		Model:     "Corolla",
		CarType:   models.CarTypeSedan,
		Location:  "Lagos",
	}
}

func listing() *models.Listing {
	return &models.Listing{
		Brand:    "Toyota",
		Model:    "Corolla",
		CarType:  models.CarTypeSedan,
		Price:    15000,
		Location: "Ikeja, Lagos",
		IsActive: true,
	}
}

func TestPriceScore(t *testing.T) {
	assert.InDelta(t, 1.0, PriceScore(15000, 10000, 20000), 1e-9)
	assert.InDelta(t, 0.5, PriceScore(10000, 10000, 20000), 1e-9)
	assert.InDelta(t, 0.5, PriceScore(20000, 10000, 20000), 1e-9)
	assert.InDelta(t, 0.0, PriceScore(40000, 10000, 20000), 1e-9)
}

func TestPriceScore_ZeroSpan(t *testing.T) {
	assert.Equal(t, 1.0, PriceScore(5000, 5000, 5000))
	assert.Equal(t, 0.0, PriceScore(5001, 5000, 5000))
	assert.Equal(t, 0.0, PriceScore(5000, 6000, 5000))
}

func TestScore_PerfectFitClamps(t *testing.T) {
	// 0.5 + 0.3 + 0.2 + 0.2 + 0.15 + 0.15 = 1.5 before clamping
	assert.Equal(t, 1.0, Score(request(), listing()))
}

func TestScore_BaseOnly(t *testing.T) {
	req := &models.BuyerRequest{MinBudget: 10000, MaxBudget: 20000, Location: "Abuja"}
	l := listing()
	l.Price = 10000 // edge of budget: price score 0.5
	assert.InDelta(t, 0.65, Score(req, l), 1e-9)
}

func TestScore_CaseInsensitiveBonuses(t *testing.T) {
	req := &models.BuyerRequest{MinBudget: 0, MaxBudget: 30000, Brand: "toyota", Model: "COROLLA"}
	// price 15000 at midpoint -> +0.3; brand +0.2; model +0.2 = 1.2 -> 1.0
	assert.Equal(t, 1.0, Score(req, listing()))

	req = &models.BuyerRequest{MinBudget: 0, MaxBudget: 30000, Brand: "toyota"}
	assert.InDelta(t, 1.0, Score(req, listing()), 1e-9)

	req = &models.BuyerRequest{MinBudget: 0, MaxBudget: 30000, Location: "LAGOS"}
	assert.InDelta(t, 0.95, Score(req, listing()), 1e-9)
}

func TestScore_Range(t *testing.T) {
	for _, price := range []int64{0, 5000, 10000, 15000, 20000, 1 << 40} {
		l := listing()
		l.Price = price
		s := Score(request(), l)
		assert.GreaterOrEqual(t, s, BaseScore)
		assert.LessOrEqual(t, s, MaxScore)
	}
}

func TestPassesHardFilter(t *testing.T) {
	assert.True(t, PassesHardFilter(request(), listing()))

	cases := map[string]func(*models.Listing){
		"inactive":      func(l *models.Listing) { l.IsActive = false },
		"below budget":  func(l *models.Listing) { l.Price = 9999 },
		"above budget":  func(l *models.Listing) { l.Price = 20001 },
		"brand":         func(l *models.Listing) { l.Brand = "Honda" },
		"brand case":    func(l *models.Listing) { l.Brand = "toyota" },
		"model":         func(l *models.Listing) { l.Model = "Camry" },
		"car type":      func(l *models.Listing) { l.CarType = models.CarTypeSUV },
		"location miss": func(l *models.Listing) { l.Location = "Abuja" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			l := listing()
			mutate(l)
			assert.False(t, PassesHardFilter(request(), l))
		})
	}
}

func TestPassesHardFilter_InclusiveBoundsAndOptionalFields(t *testing.T) {
	req := &models.BuyerRequest{MinBudget: 10000, MaxBudget: 20000, Location: "lagos"}
	for _, p := range []int64{10000, 20000} {
		l := listing()
		l.Price = p
		l.Brand = "Anything"
		assert.True(t, PassesHardFilter(req, l))
	}
}

func TestPassesHardFilter_EmptyLocation(t *testing.T) {
	req := request()
	req.Location = ""
	assert.False(t, PassesHardFilter(req, listing()))
}

func TestCandidateFilter(t *testing.T) {
	f := CandidateFilter(request(), 100, 300)
	assert.True(t, f.ActiveOnly)
	assert.Equal(t, int64(10000), *f.MinPrice)
	assert.Equal(t, int64(20000), *f.MaxPrice)
	assert.Equal(t, "Lagos", f.Location)
	assert.Equal(t, int64(100), f.Limit)
	assert.Equal(t, int64(300), f.Skip)
}
