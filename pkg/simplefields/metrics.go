package simplefields

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	savesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simplefields_saves_total",
		Help: "Field group save attempts by result",
	}, []string{"result"})

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simplefields_cache_hits_total",
		Help: "Read-through cache hits",
	})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simplefields_cache_misses_total",
		Help: "Read-through cache misses",
	})

	searchQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simplefields_search_queries_total",
		Help: "Ranked search queries executed",
	})

	bulkEditItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simplefields_bulk_edit_items_total",
		Help: "Quick-edit batch items by outcome",
	}, []string{"outcome"})
)

// Save result label values.
const (
	saveResultOK           = "ok"
	saveResultValidation   = "validation_error"
	saveResultPrecondition = "precondition_failed"
	saveResultStoreError   = "store_error"
	saveResultPanic        = "panic"
)
