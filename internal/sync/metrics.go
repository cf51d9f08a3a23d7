package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timebank_sync_total",
		Help: "Reconciliation passes by result.",
	}, []string{"result"})

	opsQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timebank_pending_ops_queued_total",
		Help: "Mutations queued for later delivery.",
	})

	opsFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timebank_pending_ops_flushed_total",
		Help: "Queued mutations delivered to the remote store.",
	})

	compactionRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timebank_compaction_runs_total",
		Help: "History compactions that changed the working set.",
	})
)
