package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AdmissionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seckill_admission_total",
			Help: "Admission script outcomes by result",
		},
		[]string{"result"},
	)

	OrdersPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seckill_orders_persisted_total",
			Help: "Orders durably written by the stream consumer",
		},
	)

	OrderRedeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seckill_order_redeliveries_total",
			Help: "Entries reprocessed from the consumer pending list",
		},
	)

	CacheRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_rebuild_total",
			Help: "Logical-expiry rebuild tasks by outcome",
		},
		[]string{"outcome"},
	)

	LockAcquireTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lock_acquire_total",
			Help: "Distributed lock acquisition attempts by result",
		},
		[]string{"result"},
	)
)
