package route

import (
	"sort"

	"flightbooker/pkg/logger"
)

func (s *Service) applySorting(results []SearchResult, by, order string) []SearchResult {
	if len(results) <= 1 || by == "" {
		return results
	}

	sorted := make([]SearchResult, len(results))
	copy(sorted, results)

	switch by {
	case "price":
		sortByPrice(sorted, order)
	case "departureTime":
		sortByDepartureTime(sorted, order)
	case "duration":
		sortByDuration(sorted, order)
	default:
		s.logger.Warn("invalid_sort_criteria", logger.Field{Key: "sort_by", Value: by})
	}

	return sorted
}

// Stable sorts keep equal results in store order.
func sortByPrice(results []SearchResult, order string) {
	sort.SliceStable(results, func(i, j int) bool {
		if order == "desc" {
			return results[i].PricePerSeat.GreaterThan(results[j].PricePerSeat)
		}
		return results[i].PricePerSeat.LessThan(results[j].PricePerSeat)
	})
}

func sortByDepartureTime(results []SearchResult, order string) {
	sort.SliceStable(results, func(i, j int) bool {
		if order == "desc" {
			return results[i].DepartureTime.After(results[j].DepartureTime)
		}
		return results[i].DepartureTime.Before(results[j].DepartureTime)
	})
}

func sortByDuration(results []SearchResult, order string) {
	sort.SliceStable(results, func(i, j int) bool {
		if order == "desc" {
			return results[i].Duration > results[j].Duration
		}
		return results[i].Duration < results[j].Duration
	})
}
