package analytics

import (
	"sort"

	"allocdash/pkg/contracts/domain"
)

// StressHistory returns, for each portfolio in order, the stress P&L of
// one scenario across every date in table, oldest first.
func StressHistory(table domain.StressTable, portfolios []string, scenarioName string, names Resolver) []domain.PortfolioHistory {
	return history(portfolios, names, func(portfolio string) []domain.HistoryPoint {
		var points []domain.HistoryPoint
		for _, r := range table {
			if r.Portfolio == portfolio && r.ScenarioName == scenarioName {
				points = append(points, domain.HistoryPoint{Date: r.Date, Value: r.StressPnL})
			}
		}
		return points
	})
}

// ExposureHistory returns, for each portfolio in order, one exposure
// measure across every date in table, oldest first.
func ExposureHistory(table domain.ExposureTable, portfolios []string, metric domain.Metric, names Resolver) []domain.PortfolioHistory {
	return history(portfolios, names, func(portfolio string) []domain.HistoryPoint {
		var points []domain.HistoryPoint
		for _, r := range table {
			if r.Portfolio == portfolio {
				points = append(points, domain.HistoryPoint{Date: r.Date, Value: domain.Float(r.Value(metric))})
			}
		}
		return points
	})
}

func history(portfolios []string, names Resolver, collect func(string) []domain.HistoryPoint) []domain.PortfolioHistory {
	names = resolverOrIdentity(names)
	out := make([]domain.PortfolioHistory, 0, len(portfolios))
	for _, p := range portfolios {
		points := collect(p)
		if points == nil {
			points = []domain.HistoryPoint{}
		}
		sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
		out = append(out, domain.PortfolioHistory{Portfolio: p, Name: names.Resolve(p), Points: points})
	}
	return out
}
