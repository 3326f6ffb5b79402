// Package matching scores listings against buyer requests.
//
// The score starts from a 0.5 base and only ever adds: a listing that fits the
// budget and nothing else still scores at least 0.5, and a perfect fit is
// clamped to 1.0. Hard constraints are not part of the score; callers filter
// with PassesHardFilter first.
package matching

import (
	"math"
	"strings"

	"carlink/market/internal/models"
)

const (
	BaseScore     = 0.5
	PriceWeight   = 0.3
	BrandBonus    = 0.2
	ModelBonus    = 0.2
	CarTypeBonus  = 0.15
	LocationBonus = 0.15
	MaxScore      = 1.0
)

// PriceScore is 1 at the midpoint of the budget and falls linearly to 0 at a
// distance of one full budget span. A zero-width budget scores 1 only on an
// exact price match.
func PriceScore(price, minBudget, maxBudget int64) float64 {
	span := float64(maxBudget - minBudget)
	if span <= 0 {
		if price == minBudget && price == maxBudget {
			return 1
		}
		return 0
	}
	mid := float64(minBudget+maxBudget) / 2
	return math.Max(0, 1-math.Abs(float64(price)-mid)/span)
}

// Score rates how well listing fits request, in [0.5, 1.0].
func Score(req *models.BuyerRequest, l *models.Listing) float64 {
	score := BaseScore + PriceScore(l.Price, req.MinBudget, req.MaxBudget)*PriceWeight

	if req.Brand != "" && strings.EqualFold(req.Brand, l.Brand) {
		score += BrandBonus
	}
	if req.Model != "" && strings.EqualFold(req.Model, l.Model) {
		score += ModelBonus
	}
	if req.CarType != "" && req.CarType == l.CarType {
		score += CarTypeBonus
	}
	if LocationMatches(req.Location, l.Location) {
		score += LocationBonus
	}
	return math.Min(score, MaxScore)
}

// LocationMatches reports whether listingLoc contains wanted, ignoring case.
// An empty wanted location matches nothing.
func LocationMatches(wanted, listingLoc string) bool {
	wanted = strings.TrimSpace(wanted)
	if wanted == "" {
		return false
	}
	return strings.Contains(strings.ToLower(listingLoc), strings.ToLower(wanted))
}

// PassesHardFilter is the eligibility predicate: the listing is active, its
// price lies in the budget (inclusive), optional brand, model and car type
// match exactly when set, and the location matches as a substring.
func PassesHardFilter(req *models.BuyerRequest, l *models.Listing) bool {
	if !l.IsActive {
		return false
	}
	if l.Price < req.MinBudget || l.Price > req.MaxBudget {
		return false
	}
	if req.Brand != "" && req.Brand != l.Brand {
		return false
	}
	if req.Model != "" && req.Model != l.Model {
		return false
	}
	if req.CarType != "" && req.CarType != l.CarType {
		return false
	}
	return LocationMatches(req.Location, l.Location)
}

// CandidateFilter is the store query that narrows candidates for req, one
// page of pageSize listings starting at skip. Results still go through
// PassesHardFilter.
func CandidateFilter(req *models.BuyerRequest, pageSize, skip int64) models.ListingFilter {
	min, max := req.MinBudget, req.MaxBudget
	return models.ListingFilter{
		ActiveOnly: true,
		Brand:      req.Brand,
		Model:      req.Model,
		CarType:    req.CarType,
		MinPrice:   &min,
		MaxPrice:   &max,
		Location:   req.Location,
		Limit:      pageSize,
		Skip:       skip,
	}
}
