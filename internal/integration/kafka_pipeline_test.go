//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/forecast-normalizer/internal/adapter/kafka"
	"github.com/couchcryptid/forecast-normalizer/internal/adapter/sqlite"
	"github.com/couchcryptid/forecast-normalizer/internal/config"
	"github.com/couchcryptid/forecast-normalizer/internal/domain"
	"github.com/couchcryptid/forecast-normalizer/internal/observability"
	"github.com/couchcryptid/forecast-normalizer/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic = "test-source"
	testSinkTopic   = "test-sink"
)

// normalizedMessage holds a dataset read back from the sink topic.
type normalizedMessage struct {
	Dataset domain.Dataset
	Key     string
	Headers map[string]string
}

// readNormalized reads a single message from the sink consumer and decodes it.
func readNormalized(ctx context.Context, t *testing.T, consumer *kafkago.Reader) normalizedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	ds, err := domain.DecodeDataset(msg.Value)
	require.NoError(t, err, "decode sink message")

	return normalizedMessage{Dataset: ds, Key: string(msg.Key), Headers: headers}
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

func testTransformer(metrics *observability.Metrics) *pipeline.ForecastTransformer {
	return pipeline.NewTransformer(pipeline.Defaults{
		Profile:    domain.ProfileWavegramCSV,
		Mode:       domain.ModeStrict,
		Convention: domain.ConventionLiteral,
	}, pipeline.NewDatasetCache(10), metrics, discardLogger())
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

func publish(ctx context.Context, t *testing.T, broker string, msgs ...kafkago.Message) {
	t.Helper()
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msgs...))
}

func profileHeader(name string) []kafkago.Header {
	return []kafkago.Header{{Key: pipeline.HeaderProfile, Value: []byte(name)}}
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (Extractor) and
// kafka.Writer (Loader) carry a raw load and its dataset through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	payload := readFixture(t, "wavegram.json")
	publish(ctx, t, broker, kafkago.Message{
		Key:     []byte("buoy-42057"),
		Value:   payload,
		Headers: profileHeader(domain.ProfileWavegram),
	})

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	batch, err := reader.ExtractBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("buoy-42057"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	assert.Equal(t, domain.ProfileWavegram, raw.Headers[pipeline.HeaderProfile])
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	out, err := testTransformer(observability.NewMetricsForTesting()).Transform(ctx, raw)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.OutputEvent{out}))

	nm := readNormalized(ctx, t, sinkConsumer(t, broker))
	assert.Equal(t, domain.ProfileWavegram, nm.Headers["profile"])
	_, err = time.Parse(time.RFC3339, nm.Headers["built_at"])
	assert.NoError(t, err, "built_at should be valid RFC3339")

	assert.Equal(t, nm.Key, nm.Dataset.ID)
	assert.Equal(t, 16, nm.Dataset.Len())
	assert.NoError(t, nm.Dataset.Validate())
}

// TestPipelineEndToEnd wires the full pipeline with real Kafka and checks that
// every profile produces a dataset.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	publish(ctx, t, broker,
		kafkago.Message{Key: []byte("yr"), Value: readFixture(t, "yr.json"), Headers: profileHeader(domain.ProfileMeteogram)},
		kafkago.Message{Key: []byte("json"), Value: readFixture(t, "wavegram.json"), Headers: profileHeader(domain.ProfileWavegram)},
		kafkago.Message{Key: []byte("csv"), Value: readFixture(t, "wavegram.csv")},
	)

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, testTransformer(metrics), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	rows := map[string]int{}
	for range 3 {
		nm := readNormalized(ctx, t, consumer)
		assert.NoError(t, nm.Dataset.Validate(), nm.Dataset.ID)
		rows[nm.Headers["profile"]] = nm.Dataset.Len()
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	assert.Equal(t, map[string]int{
		domain.ProfileMeteogram:   16,
		domain.ProfileWavegram:    16,
		domain.ProfileWavegramCSV: 56,
	}, rows)
}

// TestPipelineTransformError verifies that an unreadable load (poison pill) is
// skipped and the pipeline continues with the next load.
func TestPipelineTransformError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-poison")

	publish(ctx, t, broker,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{"), Headers: profileHeader(domain.ProfileWavegram)},
		kafkago.Message{Key: []byte("good"), Value: readFixture(t, "wavegram.json"), Headers: profileHeader(domain.ProfileWavegram)},
	)

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, testTransformer(metrics), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	nm := readNormalized(ctx, t, consumer)
	assert.Equal(t, domain.ProfileWavegram, nm.Dataset.Profile)

	// The poison pill produced nothing.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}

// TestPipelineSQLiteSink runs the pipeline against the SQLite archive instead
// of the sink topic.
func TestPipelineSQLiteSink(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	cfg := testConfig(broker, "test-sqlite")

	publish(ctx, t, broker, kafkago.Message{
		Key:     []byte("buoy-42057"),
		Value:   readFixture(t, "wavegram.json"),
		Headers: profileHeader(domain.ProfileWavegram),
	})

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "datasets.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, testTransformer(metrics), store, discardLogger(), metrics, 10)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	require.Eventually(t, func() bool {
		n, err := store.Count(ctx)
		return err == nil && n == 1
	}, 60*time.Second, 250*time.Millisecond)

	pipelineCancel()
	require.NoError(t, <-errCh)

	ds, err := store.Latest(ctx, domain.ProfileWavegram)
	require.NoError(t, err)
	assert.Equal(t, 16, ds.Len())
}
