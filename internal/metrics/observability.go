package metrics

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Observer counts pipeline events. A nil *Observer is valid and records nothing.
type Observer struct {
	samplesWritten    prometheus.Counter
	sampleErrors      prometheus.Counter
	storageErrors     prometheus.Counter
	counterClamps     prometheus.Counter
	sensorUnavailable prometheus.Counter
	netinfoFailures   prometheus.Counter
	retentionDeleted  prometheus.Counter
	retentionRuns     *prometheus.CounterVec
	tickLatency       prometheus.Histogram

	cpu      prometheus.Gauge
	ram      prometheus.Gauge
	temp     prometheus.Gauge
	upload   prometheus.Gauge
	download prometheus.Gauge
}

// NewObserver creates the pipeline metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewObserver(reg prometheus.Registerer) *Observer {
	f := promauto.With(reg)
	return &Observer{
		samplesWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "touchmon_samples_written_total",
			Help: "Samples successfully upserted into the store.",
		}),
		sampleErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "touchmon_sample_errors_total",
			Help: "Ticks skipped because the host could not be sampled.",
		}),
		storageErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "touchmon_storage_errors_total",
			Help: "Store operations that failed.",
		}),
		counterClamps: f.NewCounter(prometheus.CounterOpts{
			Name: "touchmon_counter_clamps_total",
			Help: "Network counter readings that went backwards and were clamped to zero.",
		}),
		sensorUnavailable: f.NewCounter(prometheus.CounterOpts{
			Name: "touchmon_sensor_unavailable_total",
			Help: "Samples taken without a temperature reading.",
		}),
		netinfoFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "touchmon_netinfo_failures_total",
			Help: "Network interface lookups that failed or timed out.",
		}),
		retentionDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "touchmon_retention_deleted_total",
			Help: "Samples deleted by retention pruning.",
		}),
		retentionRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "touchmon_retention_runs_total",
			Help: "Retention runs by result.",
		}, []string{"result"}),
		tickLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "touchmon_tick_duration_seconds",
			Help:    "Time spent sampling and persisting one tick.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		cpu: f.NewGauge(prometheus.GaugeOpts{
			Name: "touchmon_cpu_percent",
			Help: "CPU busy percentage of the latest sample.",
		}),
		ram: f.NewGauge(prometheus.GaugeOpts{
			Name: "touchmon_ram_percent",
			Help: "RAM used percentage of the latest sample.",
		}),
		temp: f.NewGauge(prometheus.GaugeOpts{
			Name: "touchmon_temperature_celsius",
			Help: "CPU temperature of the latest sample, NaN when absent.",
		}),
		upload: f.NewGauge(prometheus.GaugeOpts{
			Name: "touchmon_upload_kb_per_second",
			Help: "Upload throughput of the latest sample.",
		}),
		download: f.NewGauge(prometheus.GaugeOpts{
			Name: "touchmon_download_kb_per_second",
			Help: "Download throughput of the latest sample.",
		}),
	}
}

// SampleWritten records a persisted sample and exposes its values
func (o *Observer) SampleWritten(s Sample) {
	if o == nil {
		return
	}
	o.samplesWritten.Inc()
	o.cpu.Set(s.CPUPercent)
	o.ram.Set(s.RAMPercent)
	if s.Temperature.Valid {
		o.temp.Set(s.Temperature.Celsius)
	} else {
		o.temp.Set(math.NaN())
	}
	o.upload.Set(s.UploadKBps)
	o.download.Set(s.DownloadKBps)
}

func (o *Observer) SampleFailed() {
	if o != nil {
		o.sampleErrors.Inc()
	}
}

func (o *Observer) StorageFailed() {
	if o != nil {
		o.storageErrors.Inc()
	}
}

func (o *Observer) CounterClamped() {
	if o != nil {
		o.counterClamps.Inc()
	}
}

func (o *Observer) SensorUnavailable() {
	if o != nil {
		o.sensorUnavailable.Inc()
	}
}

func (o *Observer) NetInfoFailed() {
	if o != nil {
		o.netinfoFailures.Inc()
	}
}

// RetentionRun records one retention pass
func (o *Observer) RetentionRun(deleted int64, err error) {
	if o == nil {
		return
	}
	if err != nil {
		o.retentionRuns.WithLabelValues("error").Inc()
		return
	}
	o.retentionRuns.WithLabelValues("ok").Inc()
	o.retentionDeleted.Add(float64(deleted))
}

// ObserveTick records how long one sampling tick took
func (o *Observer) ObserveTick(d time.Duration) {
	if o != nil {
		o.tickLatency.Observe(d.Seconds())
	}
}

// ServeMetrics exposes gatherer on addr under /metrics until ctx is done
func ServeMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
