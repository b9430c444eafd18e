package metrics

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// Summary is the JSON response for the admin metrics endpoint.
type Summary struct {
	HTTP      httpSummary   `json:"http"`
	Admin     httpSummary   `json:"admin"`
	Claims    claimSummary  `json:"claims"`
	Ordering  orderSummary  `json:"ordering"`
	RateLimit rateLimitInfo `json:"rateLimit"`
	Auth      authInfo      `json:"auth"`
	DB        dbInfo        `json:"db"`
	Server    serverInfo    `json:"server"`
}

type httpSummary struct {
	TotalRequests float64 `json:"totalRequests"`
	ErrorRate     float64 `json:"errorRate"`
	P50Latency    float64 `json:"p50Latency"`
	P95Latency    float64 `json:"p95Latency"`
	P99Latency    float64 `json:"p99Latency"`
}

type claimSummary struct {
	Submitted         float64 `json:"submitted"`
	Approved          float64 `json:"approved"`
	Rejected          float64 `json:"rejected"`
	DirectLinks       float64 `json:"directLinks"`
	MergeStepFailures float64 `json:"mergeStepFailures"`
	PersistenceErrors float64 `json:"persistenceErrors"`
}

type orderSummary struct {
	Saves           float64 `json:"saves"`
	SaveErrors      float64 `json:"saveErrors"`
	P95SaveSeconds  float64 `json:"p95SaveSeconds"`
	Initializations float64 `json:"initializations"`
}

type rateLimitInfo struct {
	Rejections float64 `json:"rejections"`
}

type authInfo struct {
	Failures float64 `json:"failures"`
}

type serverInfo struct {
	StartTime     float64 `json:"startTime"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

type dbInfo struct {
	TotalConns    float64 `json:"totalConns"`
	IdleConns     float64 `json:"idleConns"`
	AcquiredConns float64 `json:"acquiredConns"`
	MaxConns      float64 `json:"maxConns"`
}

// Handler returns an http.HandlerFunc that serves a live JSON summary.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := m.Summarize()
		if err != nil {
			http.Error(w, "failed to gather metrics", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store")
		_ = json.NewEncoder(w).Encode(summary)
	}
}

// Summarize gathers the registry into a Summary.
func (m *Metrics) Summarize() (Summary, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return Summary{}, err
	}
	fam := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		fam[f.GetName()] = f
	}

	httpFor := func(kind string) httpSummary {
		reqs := fam["troupe_http_requests_total"]
		dur := fam["troupe_http_request_duration_seconds"]
		return httpSummary{
			TotalRequests: sumCounter(reqs, "kind", kind),
			ErrorRate:     errorRate(reqs, "kind", kind),
			P50Latency:    histogramPercentile(dur, 0.50, "kind", kind),
			P95Latency:    histogramPercentile(dur, 0.95, "kind", kind),
			P99Latency:    histogramPercentile(dur, 0.99, "kind", kind),
		}
	}
	claims := fam["troupe_claim_events_total"]
	saves := fam["troupe_display_order_saves_total"]
	start := gaugeValue(fam["troupe_server_start_time_seconds"])

	return Summary{
		HTTP:  httpFor("api"),
		Admin: httpFor("admin"),
		Claims: claimSummary{
			Submitted:         sumCounter(claims, "action", "submit", "outcome", "ok"),
			Approved:          sumCounter(claims, "action", "resolve_approved", "outcome", "ok"),
			Rejected:          sumCounter(claims, "action", "resolve_rejected", "outcome", "ok"),
			DirectLinks:       sumCounter(claims, "action", "direct_link", "outcome", "ok"),
			MergeStepFailures: sumCounter(fam["troupe_claim_merge_step_failures_total"]),
			PersistenceErrors: sumCounter(claims, "outcome", "error"),
		},
		Ordering: orderSummary{
			Saves:           sumCounter(saves),
			SaveErrors:      sumCounter(saves, "outcome", "error"),
			P95SaveSeconds:  histogramPercentile(fam["troupe_display_order_save_duration_seconds"], 0.95),
			Initializations: sumCounter(fam["troupe_display_order_initializations_total"]),
		},
		RateLimit: rateLimitInfo{Rejections: sumCounter(fam["troupe_ratelimit_rejections_total"])},
		Auth:      authInfo{Failures: sumCounter(fam["troupe_auth_failures_total"])},
		DB: dbInfo{
			TotalConns:    gaugeValue(fam["troupe_db_pool_total_conns"]),
			IdleConns:     gaugeValue(fam["troupe_db_pool_idle_conns"]),
			AcquiredConns: gaugeValue(fam["troupe_db_pool_acquired_conns"]),
			MaxConns:      gaugeValue(fam["troupe_db_pool_max_conns"]),
		},
		Server: serverInfo{
			StartTime:     start,
			UptimeSeconds: float64(time.Now().Unix()) - start,
		},
	}, nil
}

// matches reports whether m carries every name/value pair in labels.
func matches(m *dto.Metric, labels []string) bool {
	for i := 0; i+1 < len(labels); i += 2 {
		found := false
		for _, lp := range m.GetLabel() {
			if lp.GetName() == labels[i] && lp.GetValue() == labels[i+1] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sumCounter(f *dto.MetricFamily, labels ...string) float64 {
	if f == nil {
		return 0
	}
	var total float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() != nil && matches(m, labels) {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func gaugeValue(f *dto.MetricFamily) float64 {
	if f == nil || len(f.GetMetric()) == 0 {
		return 0
	}
	return f.GetMetric()[0].GetGauge().GetValue()
}

func errorRate(f *dto.MetricFamily, labels ...string) float64 {
	if f == nil {
		return 0
	}
	var total, errs float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() == nil || !matches(m, labels) {
			continue
		}
		v := m.GetCounter().GetValue()
		total += v
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "status_code" && len(lp.GetValue()) > 0 && lp.GetValue()[0] >= '4' {
				errs += v
			}
		}
	}
	if total == 0 {
		return 0
	}
	return errs / total
}

// histogramPercentile aggregates the matching histograms of a family and
// interpolates the q-th percentile linearly within its bucket.
func histogramPercentile(f *dto.MetricFamily, q float64, labels ...string) float64 {
	if f == nil {
		return 0
	}

	type bucket struct {
		upperBound      float64
		cumulativeCount uint64
	}
	var totalCount uint64
	bucketMap := make(map[float64]uint64)
	for _, m := range f.GetMetric() {
		h := m.GetHistogram()
		if h == nil || !matches(m, labels) {
			continue
		}
		totalCount += h.GetSampleCount()
		for _, b := range h.GetBucket() {
			bucketMap[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if totalCount == 0 {
		return 0
	}

	buckets := make([]bucket, 0, len(bucketMap))
	for ub, count := range bucketMap {
		if !math.IsInf(ub, 1) {
			buckets = append(buckets, bucket{upperBound: ub, cumulativeCount: count})
		}
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].upperBound < buckets[j].upperBound
	})

	rank := q * float64(totalCount)
	var prevBound float64
	var prevCount uint64
	for _, b := range buckets {
		if float64(b.cumulativeCount) >= rank {
			inBucket := b.cumulativeCount - prevCount
			if inBucket == 0 {
				return b.upperBound
			}
			fraction := (rank - float64(prevCount)) / float64(inBucket)
			return prevBound + fraction*(b.upperBound-prevBound)
		}
		prevBound = b.upperBound
		prevCount = b.cumulativeCount
	}
	if len(buckets) > 0 {
		return buckets[len(buckets)-1].upperBound
	}
	return 0
}
