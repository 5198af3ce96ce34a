// Package metrics собирает Prometheus метрики стека: диалоги, транзакции,
// RTP/RTCP сессии и медиапайплайн.
//
// Grounded на _examples/arzzra-soft_phone/pkg/dialog/metrics.go и
// pkg/rtp/metrics.go — тот же promauto/prometheus API (CounterVec,
// GaugeVec, HistogramVec), но без их "+build prometheus" тега: здесь
// метрики собираются безусловно, чтобы github.com/prometheus/client_golang
// реально оставался используемой зависимостью, а не опциональным
// флагом сборки.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry группирует все метрики govoip под одним namespace.
type Registry struct {
	DialogsTotal        prometheus.Counter
	DialogsActive       prometheus.Gauge
	DialogDuration      prometheus.Histogram
	StateTransitions    *prometheus.CounterVec

	TransactionsTotal    prometheus.Counter
	TransactionDuration  *prometheus.HistogramVec
	TransactionTimeouts  *prometheus.CounterVec

	RTPPacketsSent     prometheus.Counter
	RTPPacketsReceived prometheus.Counter
	RTPPacketsLost     prometheus.Counter
	RTCPReportsTotal   *prometheus.CounterVec
	Jitter             prometheus.Histogram

	MediaEncodeDuration *prometheus.HistogramVec
	MediaDecodeDuration *prometheus.HistogramVec

	totalDialogs      int64
	activeDialogs     int64
	totalTransactions int64
}

// New регистрирует все метрики govoip в реестре reg. Передайте
// prometheus.NewRegistry() для изолированных тестов или
// prometheus.DefaultRegisterer в продакшене.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	const ns = "govoip"

	return &Registry{
		DialogsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "dialog", Name: "dialogs_total",
			Help: "Total number of SIP dialogs created",
		}),
		DialogsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: "dialog", Name: "dialogs_active",
			Help: "Number of currently active SIP dialogs",
		}),
		DialogDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "dialog", Name: "dialog_duration_seconds",
			Help:    "Duration of SIP dialogs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 1800, 3600},
		}),
		StateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "dialog", Name: "state_transitions_total",
			Help: "Total number of dialog state transitions",
		}, []string{"from_state", "to_state"}),

		TransactionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "transaction", Name: "transactions_total",
			Help: "Total number of SIP transactions processed",
		}),
		TransactionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "transaction", Name: "duration_seconds",
			Help:    "Duration of SIP transactions in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 32},
		}, []string{"kind"}),
		TransactionTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "transaction", Name: "timeouts_total",
			Help: "Total number of SIP transaction timer expirations by timer name",
		}, []string{"timer"}),

		RTPPacketsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "rtp", Name: "packets_sent_total",
			Help: "Total number of RTP packets sent",
		}),
		RTPPacketsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "rtp", Name: "packets_received_total",
			Help: "Total number of RTP packets received",
		}),
		RTPPacketsLost: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "rtp", Name: "packets_lost_total",
			Help: "Total number of RTP packets detected lost via sequence gaps",
		}),
		RTCPReportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "rtcp", Name: "reports_total",
			Help: "Total number of RTCP reports processed by type",
		}, []string{"type"}),
		Jitter: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "rtp", Name: "jitter_seconds",
			Help:    "Estimated interarrival jitter (RFC 3550 A.8)",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),

		MediaEncodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "media", Name: "encode_duration_seconds",
			Help:    "Time spent encoding one media frame by codec",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 10),
		}, []string{"codec"}),
		MediaDecodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "media", Name: "decode_duration_seconds",
			Help:    "Time spent decoding one media frame by codec",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 10),
		}, []string{"codec"}),
	}
}

// DialogCreated регистрирует создание диалога и возвращает
// функцию, которую нужно вызвать при завершении диалога для учета длительности.
func (r *Registry) DialogCreated() func() {
	r.DialogsTotal.Inc()
	r.DialogsActive.Inc()
	atomic.AddInt64(&r.totalDialogs, 1)
	atomic.AddInt64(&r.activeDialogs, 1)
	start := time.Now()
	return func() {
		r.DialogsActive.Dec()
		atomic.AddInt64(&r.activeDialogs, -1)
		r.DialogDuration.Observe(time.Since(start).Seconds())
	}
}

// StateTransition записывает переход диалога из состояния from в to.
func (r *Registry) StateTransition(from, to string) {
	r.StateTransitions.WithLabelValues(from, to).Inc()
}

// TransactionStarted регистрирует начало транзакции вида kind (client-invite,
// server-non-invite и т.п.) и возвращает функцию завершения.
func (r *Registry) TransactionStarted(kind string) func() {
	r.TransactionsTotal.Inc()
	atomic.AddInt64(&r.totalTransactions, 1)
	start := time.Now()
	return func() {
		r.TransactionDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

// TransactionTimerFired регистрирует срабатывание таймера FSM транзакции.
func (r *Registry) TransactionTimerFired(timer string) {
	r.TransactionTimeouts.WithLabelValues(timer).Inc()
}

// RTCPReportReceived регистрирует обработанный RTCP отчет указанного типа
// (sr, rr, sdes, bye, app, xr).
func (r *Registry) RTCPReportReceived(kind string) {
	r.RTCPReportsTotal.WithLabelValues(kind).Inc()
}

// MediaEncode измеряет длительность кодирования фрейма кодеком codec.
func (r *Registry) MediaEncode(codec string, fn func()) {
	start := time.Now()
	fn()
	r.MediaEncodeDuration.WithLabelValues(codec).Observe(time.Since(start).Seconds())
}

// MediaDecode измеряет длительность декодирования фрейма кодеком codec.
func (r *Registry) MediaDecode(codec string, fn func()) {
	start := time.Now()
	fn()
	r.MediaDecodeDuration.WithLabelValues(codec).Observe(time.Since(start).Seconds())
}
