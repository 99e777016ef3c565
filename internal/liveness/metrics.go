package liveness

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	heartbeatsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiotv_heartbeats_total",
		Help: "Total terminal heartbeats ingested.",
	})

	offlineTransitionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiotv_offline_transitions_total",
		Help: "Total online-to-offline transitions detected.",
	})

	terminalsOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studiotv_terminals_online",
		Help: "Terminals currently considered online.",
	})
)
