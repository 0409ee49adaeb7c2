// Command importer consumes raw catalog imports from Kafka and produces one
// canonical record per catalog entry, inside a Kafka transaction that also
// commits the consumer offset.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/rs/zerolog"

	"gearsel/internal/adapter"
	"gearsel/internal/config"
	"gearsel/internal/importer"
	"gearsel/internal/metrics"
	"gearsel/internal/observability"
	"gearsel/internal/pipeline"
	"gearsel/internal/pricing"
	"gearsel/internal/repair"
	"gearsel/internal/state"
)

func main() {
	var (
		configPath string
		crashMode  string // before|mid|after|none
	)
	flag.StringVar(&configPath, "config", "", "path to YAML config")
	flag.StringVar(&crashMode, "crash-mode", "none", "before|mid|after|none")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	cfg.Log.ServiceName = "gearsel-importer"
	log := observability.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, crashMode, log); err != nil {
		log.Fatal().Err(err).Msg("importer failed")
	}
}

func newConverter(cfg *config.Config, log zerolog.Logger) *importer.Converter {
	calc := pricing.NewCalculator(cfg.Pricing)
	a := adapter.New(calc, cfg.Defaults, adapter.WithLogger(log))
	b := pipeline.New(a, calc, repair.New(cfg.Defaults, log), state.NewInMemoryStore())
	return importer.NewConverter(a, b)
}

func run(ctx context.Context, cfg *config.Config, crashMode string, log zerolog.Logger) error {
	conv := newConverter(cfg, log)
	mreg := metrics.NewRegistry()
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mreg.Handler()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server")
		}
	}()
	defer srv.Close()

	p, err := ck.NewProducer(&ck.ConfigMap{
		"bootstrap.servers":  cfg.Kafka.Bootstrap,
		"enable.idempotence": true,
		"acks":               "all",
		"transactional.id":   cfg.Kafka.TxID,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	c, err := ck.NewConsumer(&ck.ConfigMap{
		"bootstrap.servers":  cfg.Kafka.Bootstrap,
		"group.id":           cfg.Kafka.GroupID,
		"enable.auto.commit": false,
		"isolation.level":    "read_committed",
		"auto.offset.reset":  "earliest",
	})
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.SubscribeTopics([]string{cfg.Kafka.TopicRaw}, nil); err != nil {
		return err
	}
	if err := p.InitTransactions(ctx); err != nil {
		return err
	}
	log.Info().
		Str("bootstrap", cfg.Kafka.Bootstrap).
		Str("in", cfg.Kafka.TopicRaw).
		Str("out", cfg.Kafka.TopicOut).
		Msg("importer started")

	topicOut := cfg.Kafka.TopicOut
	abort := func(reason string, err error) {
		_ = p.AbortTransaction(context.TODO())
		mreg.TxAborted.Inc()
		log.Warn().Err(err).Msg(reason)
	}

	for ctx.Err() == nil {
		// Read first to avoid opening a transaction when there is no input.
		msg, err := c.ReadMessage(5 * time.Second)
		if err != nil {
			continue
		}
		recs, rep, err := conv.Convert(msg.Value)
		if err != nil {
			log.Warn().Err(err).Str("offset", msg.TopicPartition.Offset.String()).Msg("skipping import message")
			continue
		}

		t0 := time.Now()
		if err := p.BeginTransaction(); err != nil {
			return err
		}
		failed := false
		for _, r := range recs {
			val, _ := json.Marshal(r)
			if err := p.Produce(&ck.Message{TopicPartition: ck.TopicPartition{Topic: &topicOut, Partition: ck.PartitionAny}, Key: []byte(r.Key), Value: val}, nil); err != nil {
				abort("produce failed", err)
				failed = true
				break
			}
		}
		if failed {
			continue
		}
		if crashMode == "before" {
			log.Fatal().Msg("crash before SendOffsetsToTransaction")
		}

		// the next offset to read is committed with the transaction, not by the consumer
		next := msg.TopicPartition
		next.Offset++
		meta, err := c.GetConsumerGroupMetadata()
		if err != nil {
			abort("group metadata", err)
			continue
		}
		if err := p.SendOffsetsToTransaction(ctx, []ck.TopicPartition{next}, meta); err != nil {
			abort("send offsets failed", err)
			continue
		}
		if crashMode == "mid" {
			log.Fatal().Msg("crash mid (after SendOffsetsToTransaction, before CommitTransaction)")
		}
		_ = p.Flush(5000)
		if err := p.CommitTransaction(ctx); err != nil {
			abort("commit failed", err)
			continue
		}
		if crashMode == "after" {
			log.Fatal().Msg("crash after CommitTransaction")
		}
		mreg.TxProduced.Inc()
		mreg.TxLatencySec.Observe(time.Since(t0).Seconds())
		log.Info().
			Str("batch_id", recs[0].BatchID).
			Int("records", len(recs)).
			Int("dropped", rep.Normalize.Dropped).
			Int("patched", rep.Repair.Total()).
			Msg("import committed")
	}
	return nil
}
