package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "svh_login_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	IngestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "svh_ingest_total",
		Help: "Ingestion requests by result.",
	}, []string{"result"})
)
