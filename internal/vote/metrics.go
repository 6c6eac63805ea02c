package vote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type coordinatorMetrics struct {
	created           prometheus.Counter
	reactions         *prometheus.CounterVec
	resolutions       *prometheus.CounterVec
	duplicateResolves prometheus.Counter
	skipFailures      prometheus.Counter
	storeFaults       *prometheus.CounterVec
}

// initMetrics registers against reg; a nil reg yields unregistered collectors.
func (c *Coordinator) initMetrics(reg prometheus.Registerer) {
	promautoFactory := promauto.With(reg)
	c.metrics = &coordinatorMetrics{}
	c.metrics.created = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "skipvote_votes_created_total",
		Help: "number of skip votes opened",
	})
	c.metrics.reactions = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skipvote_reactions_applied_total",
			Help: "number of reaction add/remove events applied to votes",
		},
		[]string{"polarity", "action"},
	)
	c.metrics.resolutions = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skipvote_resolutions_total",
			Help: "number of resolution attempts by decision",
		},
		[]string{"decision"},
	)
	c.metrics.duplicateResolves = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "skipvote_duplicate_resolutions_total",
		Help: "number of resolution deliveries that found the vote already resolved or gone",
	})
	c.metrics.skipFailures = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "skipvote_skip_failures_total",
		Help: "number of skip commands to the music provider that failed",
	})
	c.metrics.storeFaults = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skipvote_store_faults_total",
			Help: "number of store errors surfaced by the coordinator",
		},
		[]string{"op"},
	)
}
