package http

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"allocdash/internal/middleware"
	"allocdash/internal/services"
)

type correlationParams struct {
	Start string   `query:"start" validate:"omitempty,isodate"`
	End   string   `query:"end" validate:"omitempty,isodate"`
	Codes []string `query:"codes" validate:"omitempty,dive,required"`
}

type snapshotParams struct {
	Date       string   `query:"date" validate:"omitempty,isodate"`
	Portfolios []string `query:"portfolios"`
	Scenarios  []string `query:"scenarios"`
}

type comparisonParams struct {
	Date    string `query:"date" validate:"omitempty,isodate"`
	Subject string `query:"subject" validate:"omitempty,max=64"`
}

type stressHistoryParams struct {
	Scenario   string   `query:"scenario" validate:"required"`
	Portfolios []string `query:"portfolios"`
}

type exposureHistoryParams struct {
	Metric     string   `query:"metric" validate:"required,metric"`
	Portfolios []string `query:"portfolios"`
}

type exportParams struct {
	Kind string `query:"kind" validate:"required,oneof=correlation_series correlation_summary stress_comparison exposure_comparison"`
	correlationParams
	comparisonParams
}

// queryList reads a list parameter given as comma-separated and/or
// repeated values. It returns nil when the parameter is absent and an
// empty slice when it is present without values.
func queryList(q url.Values, key string) []string {
	raw, ok := q[key]
	if !ok {
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// queryDate parses a validated YYYY-MM-DD parameter; empty gives zero
func queryDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(middleware.DateLayout, s)
	return t
}

func bindCorrelation(r *http.Request) correlationParams {
	q := r.URL.Query()
	return correlationParams{
		Start: q.Get("start"),
		End:   q.Get("end"),
		Codes: queryList(q, "codes"),
	}
}

func (p correlationParams) query() services.CorrelationQuery {
	return services.CorrelationQuery{
		Start: queryDate(p.Start),
		End:   queryDate(p.End),
		Codes: p.Codes,
	}
}

func bindSnapshot(r *http.Request) snapshotParams {
	q := r.URL.Query()
	return snapshotParams{
		Date:       q.Get("date"),
		Portfolios: queryList(q, "portfolios"),
		Scenarios:  queryList(q, "scenarios"),
	}
}

func (p snapshotParams) query() services.SnapshotQuery {
	return services.SnapshotQuery{
		Date:          queryDate(p.Date),
		Portfolios:    p.Portfolios,
		ScenarioNames: p.Scenarios,
	}
}

func bindComparison(r *http.Request) comparisonParams {
	q := r.URL.Query()
	return comparisonParams{
		Date:    q.Get("date"),
		Subject: strings.TrimSpace(q.Get("subject")),
	}
}

func (p comparisonParams) query() services.ComparisonQuery {
	return services.ComparisonQuery{
		Date:    queryDate(p.Date),
		Subject: p.Subject,
	}
}
