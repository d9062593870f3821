// Package metrics holds the prometheus collectors of the editor service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "richedit"

var (
	Messages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_messages_total",
		Help:      "Client messages applied to editor sessions, by type",
	}, []string{"type"})

	Rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_rejected_total",
		Help:      "Client messages refused, by reason",
	}, []string{"reason"})

	Uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_uploads_total",
		Help:      "Finished image uploads, by result",
	}, []string{"result"})

	Sessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Editor sessions currently running",
	})

	Clients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "clients_connected",
		Help:      "Websocket clients attached to a session",
	})

	bootTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "boot_time",
		Help:      "Server startup time",
	})
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	bootTime.Set(float64(time.Now().UnixMilli()))
	for _, c := range []prometheus.Collector{Messages, Rejected, Uploads, Sessions, Clients, bootTime} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the gathered metrics of g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
