package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fileOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bevisdrive_file_operations_total",
		Help: "File operations by kind and result",
	}, []string{"operation", "result"})

	consistencyErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bevisdrive_consistency_errors_total",
		Help: "Blob operations whose metadata step failed",
	}, []string{"operation"})

	shareResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bevisdrive_share_resolutions_total",
		Help: "Share link resolutions by link type and outcome",
	}, []string{"type", "outcome"})

	reconcileRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bevisdrive_reconcile_runs_total",
		Help: "Reconciliation sweeps executed",
	})

	reconcileDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bevisdrive_reconcile_decisions_total",
		Help: "Reconciliation decisions per stale intent",
	}, []string{"decision"})

	cleanupDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bevisdrive_cleanup_deleted_total",
		Help: "Rows removed by the background cleanup",
	}, []string{"kind"})
)

func observeOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = string(KindOf(err))
	}
	fileOperationsTotal.WithLabelValues(operation, result).Inc()
}
