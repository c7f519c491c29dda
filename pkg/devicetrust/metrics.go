package devicetrust

import "github.com/prometheus/client_golang/prometheus"

var (
	LoginVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devicetrust_login_verdicts_total",
			Help: "Total number of device trust verdicts by device state and decision.",
		},
		[]string{"state", "decision"},
	)

	SideEffectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devicetrust_side_effects_total",
			Help: "Total number of post-verdict side effects by task and result.",
		},
		[]string{"task", "result"},
	)
)

// MustRegister registers the gate metrics with the given registerer
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		LoginVerdictsTotal,
		SideEffectsTotal,
	)
}
