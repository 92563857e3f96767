package dataprocessing

import (
	"sort"
	"time"

	"allocdash/pkg/contracts/domain"
)

// FilterSeriesByDateRange returns the rows of s dated within [start, end]
func FilterSeriesByDateRange(s *domain.CorrelationSeries, start, end time.Time) *domain.CorrelationSeries {
	if s == nil {
		return domain.NewCorrelationSeries(nil)
	}
	from := sort.Search(len(s.Dates), func(i int) bool { return !s.Dates[i].Before(start) })
	to := sort.Search(len(s.Dates), func(i int) bool { return s.Dates[i].After(end) })
	return s.Slice(from, to)
}

// SelectSeries keeps the named columns in the order given. Unknown and
// repeated codes are ignored; an empty selection yields no columns.
func SelectSeries(s *domain.CorrelationSeries, codes []string) *domain.CorrelationSeries {
	if s == nil {
		return domain.NewCorrelationSeries(nil)
	}

	kept := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if _, dup := seen[code]; dup || !s.HasCode(code) {
			continue
		}
		seen[code] = struct{}{}
		kept = append(kept, code)
	}

	out := domain.NewCorrelationSeries(kept)
	out.Dates = append([]time.Time(nil), s.Dates...)
	for _, code := range kept {
		out.Values[code] = append([]float64(nil), s.Values[code]...)
	}
	return out
}

// FilterByDateRange returns the records dated within [start, end], in order
func FilterByDateRange[S ~[]T, T domain.Record](rows S, start, end time.Time) S {
	out := make(S, 0, len(rows))
	for _, r := range rows {
		d := r.RecordDate()
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterByExactDate returns the records dated exactly date
func FilterByExactDate[S ~[]T, T domain.Record](rows S, date time.Time) S {
	out := make(S, 0)
	for _, r := range rows {
		if r.RecordDate().Equal(date) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByEntities keeps records whose column value is in allowed.
// An empty allowed set yields an empty result.
func FilterByEntities[S ~[]T, T domain.Record](rows S, column string, allowed []string) S {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}

	out := make(S, 0)
	for _, r := range rows {
		v, ok := r.Entity(column)
		if !ok {
			continue
		}
		if _, keep := set[v]; keep {
			out = append(out, r)
		}
	}
	return out
}

// LatestDate returns the maximum date present, the default snapshot date
func LatestDate[S ~[]T, T domain.Record](rows S) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, r := range rows {
		if d := r.RecordDate(); !found || d.After(latest) {
			latest = d
			found = true
		}
	}
	return latest, found
}
