package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reservation_operations_total",
	Help: "Store operations executed by the resolver, by operation and outcome",
}, []string{"operation", "outcome"})
