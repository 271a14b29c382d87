// Package allocation converts a raw holdings list into grouped
// allocation views suitable for direct chart rendering.
package allocation

import (
	"math"

	"portfolio-tracker/internal/models"
)

// Normalize fills in defaults for a raw holding. It never fails:
// missing fields are defaulted and malformed numeric values (NaN)
// propagate silently into downstream sums.
func Normalize(h models.Holding) models.Holding {
	if h.AssetType == "" {
		h.AssetType = models.AssetStock
	}
	if h.Sector == "" {
		h.Sector = models.SectorTechnology
	}
	if h.CurrentPrice == 0 {
		h.CurrentPrice = h.PurchasePrice
	}
	if h.Value == 0 || math.IsNaN(h.Value) {
		h.Value = h.Quantity * h.CurrentPrice
	}
	return h
}

// NormalizeAll normalizes every holding in the list.
func NormalizeAll(holdings []models.Holding) []models.Holding {
	out := make([]models.Holding, len(holdings))
	for i, h := range holdings {
		out[i] = Normalize(h)
	}
	return out
}

// IndustryAllocation groups holdings by derived industry bucket. ETFs
// with the General sector land in the "Mix" bucket; sector ETFs keep
// their sector. Colors come from the sector palette in first-seen
// order, so reordering holdings reorders colors.
func IndustryAllocation(holdings []models.Holding) []models.AllocationSlice {
	keys, values := groupBy(holdings, func(h models.Holding) string {
		return string(models.IndustryFor(h))
	})
	return slices(keys, values, totalValue(holdings), models.SectorPalette)
}

// AssetClassAllocation groups holdings by asset type, translating to
// the plural display name per slice.
func AssetClassAllocation(holdings []models.Holding) []models.AllocationSlice {
	keys, values := groupBy(holdings, func(h models.Holding) string {
		t := h.AssetType
		if t == "" {
			t = models.AssetStock
		}
		return string(t)
	})
	for i, k := range keys {
		keys[i] = models.AssetType(k).DisplayName()
	}
	return slices(keys, values, totalValue(holdings), models.AssetTypePalette)
}

// Summarize computes the per-snapshot totals. The daily change ratio is
// guarded against a zero total; per-slice percentages are not (a zero
// total with a non-empty list yields NaN slices, matching the charts'
// tolerance for missing data).
func Summarize(holdings []models.Holding) models.PortfolioSummary {
	total := totalValue(holdings)
	change := 0.0
	for _, h := range holdings {
		change += h.DailyChange * h.Quantity
	}
	pct := 0.0
	if total > 0 {
		pct = change / total * 100
	}
	return models.PortfolioSummary{
		TotalValue:         total,
		TotalDailyChange:   change,
		DailyChangePercent: pct,
	}
}

func totalValue(holdings []models.Holding) float64 {
	sum := 0.0
	for _, h := range holdings {
		sum += h.Value
	}
	return sum
}

// groupBy sums holding values per key, preserving first-seen key order.
func groupBy(holdings []models.Holding, keyFn func(models.Holding) string) ([]string, map[string]float64) {
	keys := make([]string, 0, len(holdings))
	values := make(map[string]float64, len(holdings))
	for _, h := range holdings {
		k := keyFn(h)
		if _, seen := values[k]; !seen {
			keys = append(keys, k)
		}
		values[k] += h.Value
	}
	return keys, values
}

func slices(keys []string, values map[string]float64, total float64, palette []string) []models.AllocationSlice {
	out := make([]models.AllocationSlice, 0, len(keys))
	for i, name := range keys {
		v := values[name]
		out = append(out, models.AllocationSlice{
			Name:       name,
			Value:      v,
			Percentage: round2(v / total * 100),
			Color:      palette[i%len(palette)],
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
