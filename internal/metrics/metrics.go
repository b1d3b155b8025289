package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tanq16/vidq/internal/events"
	"github.com/tanq16/vidq/internal/utils"
)

const namespace = "vidq"

// Collector turns bus events into Prometheus series.
type Collector struct {
	started  prometheus.Counter
	finished *prometheus.CounterVec
	running  prometheus.Gauge
	progress prometheus.Counter
	live     prometheus.Counter
}

// New creates the collector and registers its series with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_started_total",
			Help:      "Tasks that entered the downloading state.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_finished_total",
			Help:      "Tasks that reached a terminal state, by status.",
		}, []string{"status"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_running",
			Help:      "Tasks whose external process is running.",
		}),
		progress: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_events_total",
			Help:      "Progress events parsed from downloader output.",
		}),
		live: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_streams_total",
			Help:      "Tasks detected as live streams.",
		}),
	}
	reg.MustRegister(c.started, c.finished, c.running, c.progress, c.live)
	return c
}

// Attach subscribes the collector to bus and returns a function that detaches it.
func (c *Collector) Attach(bus events.Subscriber) (cancel func()) {
	cancels := []func(){
		bus.Subscribe(events.DownloadStart, func(events.Event) {
			c.started.Inc()
			c.running.Inc()
		}),
		bus.Subscribe(events.DownloadSuccess, c.finish(utils.StatusSuccess)),
		bus.Subscribe(events.DownloadFailed, c.finish(utils.StatusFailed)),
		bus.Subscribe(events.DownloadStop, c.finish(utils.StatusStopped)),
		bus.Subscribe(events.DownloadProgress, func(events.Event) {
			c.progress.Inc()
		}),
		bus.Subscribe(events.DownloadReadyStart, func(e events.Event) {
			if e.Progress != nil && e.Progress.IsLive {
				c.live.Inc()
			}
		}),
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

func (c *Collector) finish(status utils.DownloadStatus) events.Handler {
	return func(events.Event) {
		c.finished.WithLabelValues(status.String()).Inc()
		c.running.Dec()
	}
}
