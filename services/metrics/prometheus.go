package metricsvc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/mahudhurio/core/attendance"
)

const namespace = "mahudhurio"

// query outcomes
const (
	OutcomeOK         = "ok"
	OutcomeInvalid    = "invalid"
	OutcomeDataSource = "data_source"
	OutcomeTimeout    = "timeout"
	OutcomeError      = "error"
)

type Observer struct {
	queryDuration *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
}

var _ attendance.Observer = (*Observer)(nil)

// NewObserver returns an attendance.Observer recording prometheus metrics, registered on reg.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "attendance",
				Name:      "query_duration_seconds",
				Help:      "Duration of the attendance queries.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "outcome"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "attendance",
				Name:      "cache_lookups_total",
				Help:      "Attendance summaries cache lookups.",
			},
			[]string{"result"},
		),
	}

	for _, c := range []prometheus.Collector{o.queryDuration, o.cacheLookups} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Observer) ObserveQuery(op string, elapsed time.Duration, err error) {
	o.queryDuration.WithLabelValues(op, Outcome(err)).Observe(elapsed.Seconds())
}

func (o *Observer) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	o.cacheLookups.WithLabelValues(result).Inc()
}

// Outcome classifies a query error.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	aErr, ok := attendance.AsError(err)
	switch {
	case !ok:
		return OutcomeError
	case aErr.IsInput():
		return OutcomeInvalid
	case aErr.Timeout():
		return OutcomeTimeout
	default:
		return OutcomeDataSource
	}
}
