// Package metrics holds the Prometheus collectors of the staking daemon.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/suspectuso/nft-staking/internal/staking"
)

const namespace = "nft_staking"

var (
	mActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "actions_total",
		Help:      "Ledger operations by action and result kind",
	}, []string{"action", "result"})
	mMintsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "minter",
		Name:      "sent_total",
		Help:      "Reward mints accepted by the issuer",
	})
	mMintFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "minter",
		Name:      "failures_total",
		Help:      "Failed mint attempts, final ones leave the queue",
	}, []string{"final"})
	mOutboxPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "minter",
		Name:      "outbox_pending",
		Help:      "Mint instructions waiting for dispatch",
	})
	mRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "code"})
)

// ObserveAction counts one ledger operation. Failures are labelled with
// their error kind.
func ObserveAction(action string, err error) {
	result := "ok"
	if err != nil {
		result = staking.KindOf(err)
	}
	mActions.WithLabelValues(action, result).Inc()
}

// MintSent counts a mint accepted by the issuer.
func MintSent() {
	mMintsSent.Inc()
}

// MintFailed counts a failed mint attempt.
func MintFailed(final bool) {
	label := "false"
	if final {
		label = "true"
	}
	mMintFailures.WithLabelValues(label).Inc()
}

// SetOutboxPending reports the current outbox backlog.
func SetOutboxPending(n int) {
	mOutboxPending.Set(float64(n))
}

// ObserveRequest records the latency of one HTTP request.
func ObserveRequest(route string, code int, seconds float64) {
	mRequestDuration.WithLabelValues(route, strconv.Itoa(code)).Observe(seconds)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
