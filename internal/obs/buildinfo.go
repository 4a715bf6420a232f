package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "timepay_console_build_info",
			Help: "TimePay console build information.",
		},
		[]string{"version", "backend"},
	)
)

// InitBuildInfo sets timepay_console_build_info{version,backend} to 1.
func InitBuildInfo(version, backendURL string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, backendURL).Set(1)
}
