package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	solveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phasornet",
		Name:      "requests_total",
		Help:      "Solve and port-equivalent requests by outcome.",
	}, []string{"op", "outcome"})

	solveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "phasornet",
		Name:      "request_duration_seconds",
		Help:      "End-to-end request duration, including assembly and solve.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
)
