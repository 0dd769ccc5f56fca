package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cardex/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the cardex service
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	requestsCreatedCounter metric.Int64Counter
	resolutionsCounter     metric.Int64Counter
	coinsEscrowedCounter   metric.Int64Counter
	coinsRefundedCounter   metric.Int64Counter
	sweepDurationHist      metric.Float64Histogram
	requestsExpiredCounter metric.Int64Counter
	sweepFailuresCounter   metric.Int64Counter
	natsPublishedCounter   metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("cardex"),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)

	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("cardex")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.requestsCreatedCounter, err = mp.meter.Int64Counter(
		ExchangeRequestsCreatedTotal,
		metric.WithDescription("Total number of exchange requests created"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create requests created counter: %w", err)
	}

	mp.resolutionsCounter, err = mp.meter.Int64Counter(
		ExchangeResolutionsTotal,
		metric.WithDescription("Total number of exchange request resolutions by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create resolutions counter: %w", err)
	}

	mp.coinsEscrowedCounter, err = mp.meter.Int64Counter(
		CoinsEscrowedTotal,
		metric.WithDescription("Total coins debited into escrow"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create coins escrowed counter: %w", err)
	}

	mp.coinsRefundedCounter, err = mp.meter.Int64Counter(
		CoinsRefundedTotal,
		metric.WithDescription("Total coins refunded from escrow"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create coins refunded counter: %w", err)
	}

	mp.sweepDurationHist, err = mp.meter.Float64Histogram(
		SweepDuration,
		metric.WithDescription("Duration of expiration sweeps in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create sweep duration histogram: %w", err)
	}

	mp.requestsExpiredCounter, err = mp.meter.Int64Counter(
		RequestsExpiredTotal,
		metric.WithDescription("Total number of requests expired by the reaper"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create requests expired counter: %w", err)
	}

	mp.sweepFailuresCounter, err = mp.meter.Int64Counter(
		SweepFailuresTotal,
		metric.WithDescription("Total number of per-request failures during sweeps"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sweep failures counter: %w", err)
	}

	mp.natsPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordExchangeRequestCreated records a new exchange request and the coins
// escrowed for it
func (mp *MetricsProvider) RecordExchangeRequestCreated(coinAmount int64) {
	if !mp.isEnabled() {
		return
	}

	mp.requestsCreatedCounter.Add(context.Background(), 1)
	mp.coinsEscrowedCounter.Add(context.Background(), coinAmount)
}

// RecordExchangeResolution records a resolution by outcome; refunding
// outcomes also count the refunded coins
func (mp *MetricsProvider) RecordExchangeResolution(outcome string, coinAmount int64) {
	if !mp.isEnabled() {
		return
	}

	mp.resolutionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelOutcome, outcome),
		),
	)

	if outcome != OutcomeAccepted {
		mp.coinsRefundedCounter.Add(context.Background(), coinAmount)
	}
}

// RecordExpirationSweep records one reaper pass
func (mp *MetricsProvider) RecordExpirationSweep(duration time.Duration, processed, failed int) {
	if !mp.isEnabled() {
		return
	}

	mp.sweepDurationHist.Record(context.Background(), duration.Seconds())
	mp.requestsExpiredCounter.Add(context.Background(), int64(processed))
	mp.sweepFailuresCounter.Add(context.Background(), int64(failed))
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
		),
	)
}

func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.config.OTelEnabled && mp.meter != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
