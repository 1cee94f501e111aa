package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TranscodeDuration observes wall time of one full asset pipeline run.
	TranscodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "video_pipeline_duration_seconds",
		Help:    "Time taken to process one uploaded asset end to end",
		Buckets: prometheus.ExponentialBuckets(5, 2, 10),
	})

	// RenditionDuration observes wall time of one rendition engine run.
	RenditionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "video_rendition_duration_seconds",
		Help:    "Time taken to transcode one rendition",
		Buckets: prometheus.ExponentialBuckets(2, 2, 10),
	}, []string{"quality"})

	// PipelineRuns counts pipeline outcomes.
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video_pipeline_runs_total",
		Help: "Pipeline runs by result",
	}, []string{"result"})

	// ActivePipelines tracks in-flight asset pipelines.
	ActivePipelines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "video_pipeline_active",
		Help: "Number of assets currently processing",
	})

	// DeliveryRequests counts gateway media requests by kind and outcome.
	DeliveryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video_delivery_requests_total",
		Help: "Gateway delivery requests by kind and result",
	}, []string{"kind", "result"})
)
