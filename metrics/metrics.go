package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "drp"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	queueEntriesPrepared = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "queue_entries_prepared_total",
		Help:      "Number of descriptors staged as waiting queue entries",
	})

	backboneRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "backbone_runs_total",
		Help:      "Count of pipeline backbone runs by result",
	}, []string{
		"result",
	})

	backboneEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "backbone_entries_total",
		Help:      "Count of checked queue entries by final status",
	}, []string{
		"status",
	})

	backboneRunSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "backbone_run_seconds",
		Help:      "Wall clock duration of the last backbone run",
	})

	fitsComparisons = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "fits_comparisons_total",
		Help:      "Count of FITS file comparisons by result",
	}, []string{
		"result",
	})

	suiteCases = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_cases_total",
		Help:      "Count of suite cases by result",
	}, []string{
		"result",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordPrepared(n int) {
	queueEntriesPrepared.Add(float64(n))
}

func RecordBackboneRun(result string, duration time.Duration) {
	if Debug {
		log.Debug("metric inc",
			"m", "backbone_runs_total",
			"result", result,
			"duration", duration)
	}
	backboneRuns.WithLabelValues(result).Inc()
	backboneRunSeconds.Set(duration.Seconds())
}

func RecordBackboneEntry(status string) {
	backboneEntries.WithLabelValues(status).Inc()
}

func RecordComparison(result string) {
	fitsComparisons.WithLabelValues(result).Inc()
}

func RecordSuiteCase(result string) {
	suiteCases.WithLabelValues(result).Inc()
}

// WriteTextfile dumps every registered metric to path in the Prometheus
// text format, for collection by the node exporter textfile collector.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
