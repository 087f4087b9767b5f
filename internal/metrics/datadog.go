// Package metrics submits sync run counters to Datadog.
//
// A run is short lived, so counters are sent once when it completes instead of being buffered and
// flushed on a ticker. Credentials come from the Datadog client's usual environment variables
// (DD_API_KEY, DD_SITE).
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
	"github.com/desertthunder/ifbsync/internal/models"
	"github.com/desertthunder/ifbsync/internal/shared"
)

// Metric names.
const (
	MetricRuns       = "ifbsync.runs.total"
	MetricOperations = "ifbsync.operations.total"
	MetricCalls      = "ifbsync.api.calls.total"
	MetricSkipped    = "ifbsync.groups.skipped"
	MetricWarnings   = "ifbsync.warnings.total"
	MetricDuration   = "ifbsync.run.duration_seconds"
)

// submitter is the part of [datadogV2.MetricsApi] the reporter uses.
type submitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Reporter sends one payload per completed [models.SyncRun].
type Reporter struct {
	api      submitter
	baseTags []string
	now      func() time.Time
}

// NewReporter creates a [Reporter] from cfg, or returns nil when Datadog reporting is disabled.
// A nil Reporter is valid and reports nothing.
func NewReporter(cfg shared.MetricsConfig) *Reporter {
	if !cfg.Datadog {
		return nil
	}
	api := datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	return newReporter(api, cfg)
}

func newReporter(api submitter, cfg shared.MetricsConfig) *Reporter {
	job := cfg.JobName
	if job == "" {
		job = "ifbsync"
	}

	tags := make([]string, 0, 2+len(cfg.Tags))
	tags = append(tags, resolveEnvTag(), "job:"+job)
	tags = append(tags, cfg.Tags...)

	return &Reporter{api: api, baseTags: tags, now: time.Now}
}

// Report submits the counters of a completed run.
func (r *Reporter) Report(ctx context.Context, run *models.SyncRun) error {
	if r == nil {
		return nil
	}

	payload := datadogV2.MetricPayload{Series: r.buildSeries(run, r.now().Unix())}
	_, _, err := r.api.SubmitMetrics(dd.NewDefaultContext(ctx), payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	if err != nil {
		return fmt.Errorf("failed to submit run metrics: %w", err)
	}
	return nil
}

func (r *Reporter) buildSeries(run *models.SyncRun, ts int64) []datadogV2.MetricSeries {
	tags := withTags(r.baseTags,
		"kind:"+string(run.Kind),
		"target:"+run.Target,
		"status:"+string(run.Status),
		"dry_run:"+strconv.FormatBool(run.DryRun),
	)

	series := []datadogV2.MetricSeries{
		count(MetricRuns, 1, tags, ts),
		count(MetricCalls, float64(run.Counts.Calls), tags, ts),
		gauge(MetricDuration, run.Duration().Seconds(), tags, ts),
	}

	for op, n := range map[string]int{"create": run.Counts.Creates, "update": run.Counts.Updates, "delete": run.Counts.Deletes} {
		if n > 0 {
			series = append(series, count(MetricOperations, float64(n), withTags(tags, "op:"+op), ts))
		}
	}
	if run.Counts.Skipped > 0 {
		series = append(series, count(MetricSkipped, float64(run.Counts.Skipped), tags, ts))
	}
	if run.Counts.Warnings > 0 {
		series = append(series, count(MetricWarnings, float64(run.Counts.Warnings), tags, ts))
	}
	return series
}

func count(metric string, value float64, tags []string, ts int64) datadogV2.MetricSeries {
	return series(metric, datadogV2.METRICINTAKETYPE_COUNT, value, tags, ts)
}

func gauge(metric string, value float64, tags []string, ts int64) datadogV2.MetricSeries {
	return series(metric, datadogV2.METRICINTAKETYPE_GAUGE, value, tags, ts)
}

func series(metric string, kind datadogV2.MetricIntakeType, value float64, tags []string, ts int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   kind.Ptr(),
		Points: []datadogV2.MetricPoint{{Timestamp: dd.PtrInt64(ts), Value: dd.PtrFloat64(value)}},
		Tags:   tags,
	}
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	return append(out, extras...)
}
