package telemetry_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/papercomputeco/parley/pkg/telemetry"
)

var _ = Describe("Instruments", func() {
	var (
		ctx   context.Context
		spans *tracetest.SpanRecorder
		inst  *telemetry.Instruments
		rdr   *sdkmetric.ManualReader
	)

	BeforeEach(func() {
		ctx = context.Background()
		spans = tracetest.NewSpanRecorder()
		rdr = sdkmetric.NewManualReader()

		var err error
		inst, err = telemetry.New(
			sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)),
			sdkmetric.NewMeterProvider(sdkmetric.WithReader(rdr)),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	It("records a chat span with the session id", func() {
		_, span := inst.StartChat(ctx, "sess-1")
		span.End()

		ended := spans.Ended()
		Expect(ended).To(HaveLen(1))
		Expect(ended[0].Name()).To(Equal("parley.chat"))
		Expect(ended[0].Attributes()).To(ContainElement(HaveField("Value.AsString()", "sess-1")))
	})

	It("counts failures and turns", func() {
		inst.InferenceFailed(ctx, "request")
		inst.PersistenceFailed(ctx)
		inst.TurnAppended(ctx, "user")
		inst.TurnAppended(ctx, "model")

		var rm metricdata.ResourceMetrics
		Expect(rdr.Collect(ctx, &rm)).To(Succeed())

		totals := map[string]int64{}
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				sum, ok := m.Data.(metricdata.Sum[int64])
				Expect(ok).To(BeTrue())
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}

		Expect(totals).To(Equal(map[string]int64{
			"parley.inference.failures":   1,
			"parley.persistence.failures": 1,
			"parley.turns":                2,
		}))
	})
})

var _ = Describe("Setup", func() {
	It("is a no-op without a directory", func() {
		shutdown, err := telemetry.Setup(context.Background(), telemetry.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(shutdown(context.Background())).To(Succeed())
	})

	It("writes exporter files under the directory", func() {
		dir := filepath.Join(GinkgoT().TempDir(), "telemetry")
		shutdown, err := telemetry.Setup(context.Background(), telemetry.Config{Dir: dir, Version: "test"})
		Expect(err).NotTo(HaveOccurred())

		inst, err := telemetry.New(nil, nil)
		Expect(err).NotTo(HaveOccurred())
		_, span := inst.StartChat(context.Background(), "sess-1")
		span.End()

		Expect(shutdown(context.Background())).To(Succeed())

		data, err := os.ReadFile(filepath.Join(dir, "parley_traces.log"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("parley.chat"))
	})
})
