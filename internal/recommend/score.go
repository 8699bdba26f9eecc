package recommend

import (
	"sort"
	"strings"

	"dnanh/shopradar/helpers"
	"dnanh/shopradar/internal/scraper"
)

// filterOutliers rejects suspicious listings by comparing against the
// median price. The criteria relax in tiers so the pipeline never filters
// itself down to nothing: first demand a plausible price and a rated shop,
// then just a positive price, then give up and keep everything.
func (s *Service) filterOutliers(candidates []scraper.ProductCandidate) []scraper.ProductCandidate {
	if len(candidates) == 0 {
		return candidates
	}
	med := medianPrice(candidates)

	strict := make([]scraper.ProductCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Price >= 0.3*med && c.ShopRating > 0 {
			strict = append(strict, c)
		}
	}
	if len(strict) > 0 {
		return strict
	}
	s.log.Warn().Float64("median_price", med).Int("candidates", len(candidates)).
		Msg("Strict outlier filter rejected everything, relaxing to positive prices")

	loose := make([]scraper.ProductCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Price > 0 {
			loose = append(loose, c)
		}
	}
	if len(loose) > 0 {
		return loose
	}
	s.log.Warn().Int("candidates", len(candidates)).
		Msg("No candidate has a positive price, keeping all")
	return candidates
}

// medianPrice returns the median of the candidates' prices, averaging the
// two middle values for even-sized inputs.
func medianPrice(candidates []scraper.ProductCandidate) float64 {
	prices := make([]float64, len(candidates))
	for i, c := range candidates {
		prices[i] = c.Price
	}
	sort.Float64s(prices)

	mid := len(prices) / 2
	if len(prices)%2 == 1 {
		return prices[mid]
	}
	return (prices[mid-1] + prices[mid]) / 2
}

// scoreCandidates computes each candidate's MatchScore and FitReason in
// place. Component scores are relative to the candidate set: the cheapest
// total cost, the best rating and the lowest shipping fee anchor the
// scale, with title similarity against the hint as an independent bonus.
func scoreCandidates(candidates []scraper.ProductCandidate, titleHint string, w Weights) {
	var maxTotal, maxShipping float64
	for _, c := range candidates {
		if t := c.TotalCost(); t > maxTotal {
			maxTotal = t
		}
		if c.ShippingCost > maxShipping {
			maxShipping = c.ShippingCost
		}
	}

	for i := range candidates {
		c := &candidates[i]

		priceScore := 0.0
		if maxTotal > 0 {
			priceScore = 1 - c.TotalCost()/maxTotal
		}

		ratingScore := c.ShopRating / 5
		if ratingScore > 1 {
			ratingScore = 1
		}

		shippingScore := 1.0
		if maxShipping > 0 {
			shippingScore = 1 - c.ShippingCost/maxShipping
		}

		titleScore := helpers.JaccardSimilarity(titleHint, c.Title)

		c.MatchScore = w.Price*priceScore + w.Rating*ratingScore +
			w.Shipping*shippingScore + w.TitleSimilarity*titleScore
		c.FitReason = fitReason(priceScore, ratingScore, shippingScore, titleScore)
	}
}

// fitReason builds the human-readable justification shown next to each
// recommendation, one clause per strong component.
func fitReason(priceScore, ratingScore, shippingScore, titleScore float64) string {
	var reasons []string
	if priceScore >= 0.6 {
		reasons = append(reasons, "Giá tốt")
	}
	if ratingScore >= 0.8 {
		reasons = append(reasons, "Shop uy tín")
	}
	if titleScore >= 0.3 {
		reasons = append(reasons, "Tên khớp")
	}
	if shippingScore >= 0.6 {
		reasons = append(reasons, "Phí ship thấp")
	}
	return strings.Join(reasons, ", ")
}

// orderCandidates sorts best-first: primarily by descending match score,
// then a second stable pass by ascending total cost so equally-priced
// candidates keep their score order.
func orderCandidates(candidates []scraper.ProductCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MatchScore > candidates[j].MatchScore
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].TotalCost() < candidates[j].TotalCost()
	})
}

// assignLabels decorates the ordered candidates. Exactly one BestDeal per
// result set (the lowest total cost, earliest wins ties); TrustedShop and
// OfficialStore may apply to any number of candidates.
func assignLabels(candidates []scraper.ProductCandidate, trustedSalesThreshold int) {
	if len(candidates) == 0 {
		return
	}

	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].TotalCost() < candidates[best].TotalCost() {
			best = i
		}
	}
	candidates[best].Labels = append(candidates[best].Labels, scraper.LabelBestDeal)

	for i := range candidates {
		c := &candidates[i]
		if c.ShopRating > 4.8 && c.SoldCount >= trustedSalesThreshold {
			c.Labels = append(c.Labels, scraper.LabelTrustedShop)
		}
		shop := strings.ToLower(c.ShopName)
		if c.SellerType == "official" || strings.Contains(shop, "official") || strings.Contains(shop, "mall") {
			c.Labels = append(c.Labels, scraper.LabelOfficialStore)
		}
	}
}
