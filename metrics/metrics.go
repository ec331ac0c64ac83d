package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Every beacon ends up in exactly one outcome bucket, so nothing is ever
// dropped without a recorded classification.
const (
	OutcomeOK           = "ok"
	OutcomeUnauthorized = "unauthorized"
	OutcomeRateLimited  = "rate_limited"
	OutcomeMalformed    = "malformed"
	OutcomeInternal     = "internal"
)

var (
	// BeaconsTotal counts ingested beacons by outcome.
	BeaconsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krakens_beacons_total",
			Help: "Total number of tracking beacons received, by outcome",
		},
		[]string{"outcome"},
	)

	// SessionsStartedTotal counts sessions opened by a first beacon.
	SessionsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "krakens_sessions_started_total",
			Help: "Total number of visitor sessions started",
		},
	)

	// SnapshotsTotal counts dashboard snapshot reads.
	SnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krakens_snapshots_total",
			Help: "Total number of stats snapshots served, by kind",
		},
		[]string{"kind"},
	)
)

func RecordBeacon(outcome string) {
	BeaconsTotal.WithLabelValues(outcome).Inc()
}

func RecordSessionStart() {
	SessionsStartedTotal.Inc()
}

func RecordSnapshot(kind string) {
	SnapshotsTotal.WithLabelValues(kind).Inc()
}
