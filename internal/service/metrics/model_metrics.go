package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// ModelInfo is 1 for each artifact currently served.
	ModelInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "smartloan",
			Subsystem: "model",
			Name:      "info",
			Help:      "Loaded model artifacts by kind and fingerprint",
		},
		[]string{"kind", "fingerprint"},
	)

	ModelLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartloan",
			Subsystem: "model",
			Name:      "loads_total",
			Help:      "Model artifact load attempts by kind and result",
		},
		[]string{"kind", "result"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ModelInfo, ModelLoads)
	})
}

// ObserveLoad records a load attempt. A successful load also publishes the
// artifact fingerprint.
func ObserveLoad(kind, fingerprint string, err error) {
	if err != nil {
		ModelLoads.WithLabelValues(kind, "error").Inc()
		return
	}
	ModelLoads.WithLabelValues(kind, "ok").Inc()
	ModelInfo.WithLabelValues(kind, fingerprint).Set(1)
}
