package analytics

import (
	"allocdash/pkg/contracts/domain"
)

// Bucket computes peer-group statistics for one scenario or metric
func Bucket(key string, values []float64) domain.BucketStats {
	sorted := sortedFinite(values)
	return domain.BucketStats{
		Key:    key,
		Median: domain.Float(quantileSorted(sorted, 0.5)),
		Q25:    domain.Float(quantileSorted(sorted, 0.25)),
		Q75:    domain.Float(quantileSorted(sorted, 0.75)),
		Peers:  len(sorted),
	}
}

// StressResult is the comparison of a subject portfolio with its bucket
type StressResult struct {
	Subject string                    `json:"subject"`
	Rows    []domain.StressComparison `json:"rows"`
	Buckets []domain.BucketStats      `json:"buckets"`
	// EmptyPeerGroup is set when no portfolio other than the subject is
	// present; every bucket statistic is then NaN.
	EmptyPeerGroup bool `json:"empty_peer_group"`
}

// CompareStress compares the subject's stress P&L per scenario with the
// median and quartiles of every other portfolio in rows. rows should hold
// a single snapshot date.
//
// Only scenarios present on both sides are compared. Subject rows keep
// their table order. With no peers at all the subject rows are returned
// with NaN statistics.
func CompareStress(rows domain.StressTable, subject string) StressResult {
	result := StressResult{
		Subject: subject,
		Rows:    []domain.StressComparison{},
		Buckets: []domain.BucketStats{},
	}

	var subjectRows []domain.StressRecord
	peerValues := make(map[string][]float64)
	var scenarioOrder []string
	for _, r := range rows {
		if r.Portfolio == subject {
			subjectRows = append(subjectRows, r)
			continue
		}
		if _, seen := peerValues[r.ScenarioName]; !seen {
			scenarioOrder = append(scenarioOrder, r.ScenarioName)
		}
		peerValues[r.ScenarioName] = append(peerValues[r.ScenarioName], float64(r.StressPnL))
	}

	buckets := make(map[string]domain.BucketStats, len(scenarioOrder))
	for _, name := range scenarioOrder {
		b := Bucket(name, peerValues[name])
		buckets[name] = b
		result.Buckets = append(result.Buckets, b)
	}

	result.EmptyPeerGroup = len(scenarioOrder) == 0
	for _, r := range subjectRows {
		b, ok := buckets[r.ScenarioName]
		if !ok {
			if !result.EmptyPeerGroup {
				continue
			}
			b = Bucket(r.ScenarioName, nil)
		}
		result.Rows = append(result.Rows, domain.StressComparison{
			ScenarioName: r.ScenarioName,
			Subject:      r.StressPnL,
			BucketMedian: b.Median,
			BucketQ25:    b.Q25,
			BucketQ75:    b.Q75,
		})
	}
	return result
}

// ExposureResult is the comparison of a subject portfolio's exposure
// measures with its bucket
type ExposureResult struct {
	Subject        string                      `json:"subject"`
	Rows           []domain.ExposureComparison `json:"rows"`
	Buckets        []domain.BucketStats        `json:"buckets"`
	EmptyPeerGroup bool                        `json:"empty_peer_group"`
}

// CompareExposure compares each exposure measure of the subject with the
// median and quartiles of that measure across the other portfolios in
// rows. rows should hold a single snapshot date. When the subject has
// several rows the first one is used; when it has none the result has no
// rows.
func CompareExposure(rows domain.ExposureTable, subject string) ExposureResult {
	result := ExposureResult{
		Subject: subject,
		Rows:    []domain.ExposureComparison{},
		Buckets: []domain.BucketStats{},
	}

	var subjectRow *domain.ExposureRecord
	peers := make(domain.ExposureTable, 0, len(rows))
	for i := range rows {
		if rows[i].Portfolio == subject {
			if subjectRow == nil {
				subjectRow = &rows[i]
			}
			continue
		}
		peers = append(peers, rows[i])
	}
	result.EmptyPeerGroup = len(peers) == 0

	for _, m := range domain.ExposureMetrics {
		values := make([]float64, len(peers))
		for i, p := range peers {
			values[i] = p.Value(m)
		}
		b := Bucket(string(m), values)
		result.Buckets = append(result.Buckets, b)

		if subjectRow == nil {
			continue
		}
		result.Rows = append(result.Rows, domain.ExposureComparison{
			Metric:       m,
			Subject:      domain.Float(subjectRow.Value(m)),
			BucketMedian: b.Median,
			BucketQ25:    b.Q25,
			BucketQ75:    b.Q75,
		})
	}
	return result
}
