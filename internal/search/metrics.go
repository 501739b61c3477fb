package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	plansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carplan_search_plans_total",
		Help: "Total plan calls by result",
	}, []string{"result"})

	planDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "carplan_search_plan_duration_seconds",
		Help:    "Plan duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
	})

	expansions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carplan_search_expansions_total",
		Help: "Total vertex expansions",
	})

	notifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carplan_search_reexpansions_total",
		Help: "Total vertices re-expanded after map edits",
	})
)
