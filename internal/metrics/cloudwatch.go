package metrics

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"cryptotracker/logger"
)

//go:embed CWdash.json
var dashboardTemplate string

type cloudWatchState struct {
	client        *cloudwatch.Client
	namespace     string
	dashboardName string
	region        string
}

var cwState atomic.Pointer[cloudWatchState]

var (
	// cloudWatchPublishInterval is the minimum gap between two publishes of
	// the same metric series.
	cloudWatchPublishInterval = time.Minute
	timeNow                   = time.Now
	publishMetricsFunc        = publishMetrics

	metricPublishMu    sync.Mutex
	metricPublishTimes = make(map[string]time.Time)
)

func init() {
	cwState.Store(&cloudWatchState{
		namespace:     "CryptoTracker",
		dashboardName: "CryptoTracker",
	})
}

// InitCloudWatch creates the CloudWatch client for region and namespace and
// applies the embedded dashboard. On failure publishing stays disabled.
func InitCloudWatch(ctx context.Context, region, namespace string) {
	log := logger.GetLogger().WithComponent("cloudwatch")

	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.WithError(err).Warn("failed to load AWS configuration; CloudWatch metrics disabled")
		return
	}

	state := *cwState.Load()
	state.client = cloudwatch.NewFromConfig(cfg)
	if namespace != "" {
		state.namespace = namespace
		state.dashboardName = namespace
	}
	state.region = region
	if cfg.Region != "" {
		state.region = cfg.Region
	}
	cwState.Store(&state)

	log.WithFields(logger.Fields{
		"region":    state.region,
		"namespace": state.namespace,
	}).Info("initialized CloudWatch client")

	if err := CreateDashboardFromTemplate(ctx); err != nil {
		log.WithError(err).Warn("failed to create CloudWatch dashboard")
	}
}

// EmitMetric logs the metric, dispatches it to registered handlers and
// publishes numeric values to CloudWatch when configured.
func EmitMetric(log *logger.Log, component string, metric string, value interface{}, metricType string, fields logger.Fields) {
	event, ok := recordMetric(log, component, metric, value, metricType, fields)
	if !ok {
		return
	}

	numeric, ok := toFloat64(event.Value)
	if !ok {
		logger.GetLogger().WithComponent("cloudwatch").WithFields(logger.Fields{"metric": event.Name}).Debug("non-numeric metric value; skipping publish")
		return
	}

	publishMetricDatum(event, numeric)
}

// PublishReport forwards a runtime report to CloudWatch. It is used as a
// logger.ReportSink.
func PublishReport(ctx context.Context, r logger.Report) {
	state := cwState.Load()
	if state == nil || state.client == nil {
		return
	}

	datum := func(name string, unit cwtypes.StandardUnit, v float64) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{
			MetricName: aws.String(name),
			Unit:       unit,
			Value:      aws.Float64(v),
			Timestamp:  aws.Time(r.Time),
		}
	}

	data := []cwtypes.MetricDatum{
		datum("CPUPercent", cwtypes.StandardUnitPercent, r.CPUPercent),
		datum("MemoryMB", cwtypes.StandardUnitMegabytes, r.MemoryMB),
		datum("DiskMB", cwtypes.StandardUnitMegabytes, r.DiskMB),
		datum("Goroutines", cwtypes.StandardUnitCount, float64(r.Goroutines)),
		datum("TickerFetches", cwtypes.StandardUnitCount, float64(r.TickerFetches)),
		datum("TickerFailures", cwtypes.StandardUnitCount, float64(r.TickerFailures)),
		datum("ChartFetches", cwtypes.StandardUnitCount, float64(r.ChartFetches)),
		datum("ChartFailures", cwtypes.StandardUnitCount, float64(r.ChartFailures)),
		datum("ErrorsFetch", cwtypes.StandardUnitCount, float64(r.ErrorsFetch)),
		datum("ErrorsHTTP", cwtypes.StandardUnitCount, float64(r.ErrorsHTTP)),
		datum("NetBytesSent", cwtypes.StandardUnitBytes, float64(r.NetBytesSent)),
		datum("NetBytesRecv", cwtypes.StandardUnitBytes, float64(r.NetBytesRecv)),
	}
	publishMetricsFunc(ctx, state, data)
}

// CreateDashboardFromTemplate applies the embedded dashboard definition with
// the configured namespace and region.
func CreateDashboardFromTemplate(ctx context.Context) error {
	state := cwState.Load()
	if state == nil || state.client == nil {
		return nil
	}

	body, err := renderDashboard(state)
	if err != nil {
		return err
	}

	_, err = state.client.PutDashboard(ctx, &cloudwatch.PutDashboardInput{
		DashboardName: aws.String(state.dashboardName),
		DashboardBody: aws.String(body),
	})
	if err != nil {
		return err
	}

	logger.GetLogger().WithComponent("cloudwatch").Debug("updated CloudWatch dashboard from template")
	return nil
}

func renderDashboard(state *cloudWatchState) (string, error) {
	body := dashboardTemplate
	if state.namespace != "" {
		body = strings.ReplaceAll(body, "\"CryptoTracker\"", fmt.Sprintf("%q", state.namespace))
	}
	if state.region != "" {
		body = strings.ReplaceAll(body, "\"eu-central-1\"", fmt.Sprintf("%q", state.region))
	}
	if !json.Valid([]byte(body)) {
		return "", fmt.Errorf("dashboard template is not valid JSON after substitution")
	}
	return body, nil
}

func publishMetricDatum(metric Metric, value float64) {
	state := cwState.Load()
	if state == nil || state.client == nil {
		return
	}

	unit := cwtypes.StandardUnitCount
	if rawUnit, ok := metric.Fields["unit"]; ok {
		if unitStr, ok := rawUnit.(string); ok {
			if parsed, found := metricUnitFromString(unitStr); found {
				unit = parsed
			} else {
				logger.GetLogger().WithComponent("cloudwatch").WithFields(logger.Fields{"metric": metric.Name, "unit": unitStr}).Debug("unsupported metric unit; defaulting to Count")
			}
		}
	}

	dims := []cwtypes.Dimension{{Name: aws.String("component"), Value: aws.String(metric.Component)}}
	keys := make([]string, 0, len(metric.Fields))
	for k := range metric.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "unit" {
			continue
		}
		if s, ok := metric.Fields[k].(string); ok && s != "" {
			dims = append(dims, cwtypes.Dimension{Name: aws.String(k), Value: aws.String(s)})
		}
	}

	if !shouldPublish(seriesKey(metric.Name, dims)) {
		return
	}

	ts := metric.Timestamp
	if ts.IsZero() {
		ts = timeNow()
	}
	data := []cwtypes.MetricDatum{{
		MetricName: aws.String(metric.Name),
		Dimensions: dims,
		Unit:       unit,
		Value:      aws.Float64(value),
		Timestamp:  aws.Time(ts),
	}}
	publishMetricsFunc(context.Background(), state, data)
}

func seriesKey(name string, dims []cwtypes.Dimension) string {
	var b strings.Builder
	b.WriteString(name)
	for _, d := range dims {
		b.WriteByte('|')
		b.WriteString(aws.ToString(d.Name))
		b.WriteByte('=')
		b.WriteString(aws.ToString(d.Value))
	}
	return b.String()
}

func shouldPublish(key string) bool {
	now := timeNow()
	metricPublishMu.Lock()
	defer metricPublishMu.Unlock()
	if last, ok := metricPublishTimes[key]; ok && now.Sub(last) < cloudWatchPublishInterval {
		return false
	}
	metricPublishTimes[key] = now
	return true
}

func resetMetricPublishTimes() {
	metricPublishMu.Lock()
	metricPublishTimes = make(map[string]time.Time)
	metricPublishMu.Unlock()
}

func publishMetrics(ctx context.Context, state *cloudWatchState, data []cwtypes.MetricDatum) {
	if state == nil || state.client == nil {
		return
	}
	log := logger.GetLogger().WithComponent("cloudwatch")
	if len(data) == 0 {
		log.Debug("no metric data to publish")
		return
	}

	if _, err := state.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(state.namespace),
		MetricData: data,
	}); err != nil {
		log.WithError(err).Warn("failed to publish CloudWatch metrics")
		return
	}

	names := make([]string, 0, len(data))
	for _, datum := range data {
		names = append(names, aws.ToString(datum.MetricName))
	}
	log.WithField("metrics", strings.Join(names, ",")).Debug("published metrics to CloudWatch")
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func metricUnitFromString(unit string) (cwtypes.StandardUnit, bool) {
	switch strings.ToLower(unit) {
	case "count":
		return cwtypes.StandardUnitCount, true
	case "percent":
		return cwtypes.StandardUnitPercent, true
	case "seconds":
		return cwtypes.StandardUnitSeconds, true
	case "milliseconds":
		return cwtypes.StandardUnitMilliseconds, true
	case "bytes":
		return cwtypes.StandardUnitBytes, true
	default:
		return cwtypes.StandardUnitCount, false
	}
}
