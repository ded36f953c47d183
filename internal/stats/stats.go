// Package stats provides the optional Statistics collaborator described in
// spec.md §9 ("Global mutable state"): a side-channel, fire-and-forget
// observer of election activity that the core never depends on for
// correctness. It mirrors the aggregates computed by the original
// classmethod-based statistics.py, but exports them as Prometheus metrics
// instead of in-process globals.
package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements paxos.StatsSink.
type Collector struct {
	leaderChanges   prometheus.Counter
	electionLatency prometheus.Histogram

	firstElection bool
}

// NewCollector registers its metrics with reg (use prometheus.NewRegistry
// in tests to avoid colliding with the default global registry).
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		leaderChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paxos_leader_changes_total",
			Help: "Number of times a new leader was elected.",
		}),
		electionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "paxos_election_duration_seconds",
			Help:    "Time between starting an election and winning it.",
			Buckets: prometheus.DefBuckets,
		}),
		firstElection: true,
	}
	reg.MustRegister(c.leaderChanges, c.electionLatency)
	return c
}

// ElectionStarted implements paxos.StatsSink. The original statistics.py
// only records a start time; nothing to export on its own here, since the
// duration is derived when the election concludes.
func (c *Collector) ElectionStarted(term uint64) {}

// LeaderElected implements paxos.StatsSink. The very first election in a
// fresh cluster is excluded from the latency histogram, matching
// statistics.py's add_time_during_election which skips it deliberately
// (startup contention isn't representative of steady-state failover cost).
func (c *Collector) LeaderElected(term uint64, d time.Duration) {
	c.leaderChanges.Inc()
	if c.firstElection {
		c.firstElection = false
		return
	}
	c.electionLatency.Observe(d.Seconds())
}
