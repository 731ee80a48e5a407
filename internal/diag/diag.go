// Package diag exposes the core's internal counters and gauges as
// Prometheus metrics, modeled on golib's prometheus pool registry
// shape:
// a single registry new components register named collectors into, rather
// than each layer importing client_golang directly.
package diag

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the process-wide metric collection point every L0-L5 layer
// registers its named counters/gauges into, the same single-registry-per-
// process shape golib's prometheus pool wraps around a
// *prometheus.Registry.
type Registry struct {
	reg *prometheus.Registry

	poolAlloc    *prometheus.CounterVec
	poolInUse    *prometheus.GaugeVec
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	cacheEvicts  prometheus.Counter
	discoveredParticipants prometheus.Gauge
	matchedEndpoints       prometheus.Gauge
	rtpsSent     *prometheus.CounterVec
	rtpsReceived *prometheus.CounterVec
}

// New builds a Registry with every metric pre-registered, so callers never
// hit an "unregistered collector" error on first use — the core's
// components share a fixed metric surface rather than registering ad hoc.
func New() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.poolAlloc = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tdds",
		Subsystem: "pool",
		Name:      "allocations_total",
		Help:      "Total handle allocations, by arena kind.",
	}, []string{"kind"})

	r.poolInUse = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tdds",
		Subsystem: "pool",
		Name:      "entries_in_use",
		Help:      "Live (allocated, not yet released) entries, by arena kind.",
	}, []string{"kind"})

	r.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tdds", Subsystem: "cache", Name: "hits_total",
		Help: "HistoryCache lookups that found the requested change.",
	})
	r.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tdds", Subsystem: "cache", Name: "misses_total",
		Help: "HistoryCache lookups that did not find the requested change.",
	})
	r.cacheEvicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tdds", Subsystem: "cache", Name: "evictions_total",
		Help: "Changes evicted by a HISTORY/RESOURCE_LIMITS QoS bound.",
	})

	r.discoveredParticipants = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tdds", Subsystem: "discovery", Name: "participants",
		Help: "Currently discovered remote participants.",
	})
	r.matchedEndpoints = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tdds", Subsystem: "discovery", Name: "matched_endpoints",
		Help: "Currently matched remote endpoint pairs.",
	})

	r.rtpsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tdds", Subsystem: "rtps", Name: "messages_sent_total",
		Help: "RTPS messages sent, by submessage kind.",
	}, []string{"kind"})
	r.rtpsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tdds", Subsystem: "rtps", Name: "messages_received_total",
		Help: "RTPS messages received, by submessage kind.",
	}, []string{"kind"})

	r.reg.MustRegister(
		r.poolAlloc, r.poolInUse,
		r.cacheHits, r.cacheMisses, r.cacheEvicts,
		r.discoveredParticipants, r.matchedEndpoints,
		r.rtpsSent, r.rtpsReceived,
	)
	return r
}

// Gatherer exposes the underlying registry for an HTTP handler (internal/debugapi
// mounts this behind promhttp).
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) PoolAlloc(kind string)         { r.poolAlloc.WithLabelValues(kind).Inc() }
func (r *Registry) PoolInUse(kind string, n float64) { r.poolInUse.WithLabelValues(kind).Set(n) }

func (r *Registry) CacheHit()   { r.cacheHits.Inc() }
func (r *Registry) CacheMiss()  { r.cacheMisses.Inc() }
func (r *Registry) CacheEvict() { r.cacheEvicts.Inc() }

func (r *Registry) SetDiscoveredParticipants(n int) { r.discoveredParticipants.Set(float64(n)) }
func (r *Registry) SetMatchedEndpoints(n int)       { r.matchedEndpoints.Set(float64(n)) }

func (r *Registry) RTPSSent(kind string)     { r.rtpsSent.WithLabelValues(kind).Inc() }
func (r *Registry) RTPSReceived(kind string) { r.rtpsReceived.WithLabelValues(kind).Inc() }
