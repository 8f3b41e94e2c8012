// Command ingest drives the postcode pipeline: download the source
// archives, load them into Postgres, then merge addresses with postcodes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/postcode-lookup/pipeline/config"
	"github.com/postcode-lookup/pipeline/internal/repositories/addressrepo"
	"github.com/postcode-lookup/pipeline/internal/repositories/datasourcerepo"
	"github.com/postcode-lookup/pipeline/internal/repositories/postcoderepo"
	"github.com/postcode-lookup/pipeline/pkg/coords"
	"github.com/postcode-lookup/pipeline/pkg/database"
	"github.com/postcode-lookup/pipeline/pkg/events"
	"github.com/postcode-lookup/pipeline/pkg/kafka"
	"github.com/postcode-lookup/pipeline/pkg/logging"
	"github.com/postcode-lookup/pipeline/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the wiring shared by every subcommand, built once in setup.
type app struct {
	cfg         *config.Config
	logger      ectologger.Logger
	sqlxDB      *sqlx.DB
	db          database.DB
	transformer *coords.Transformer
	postcodes   *postcoderepo.Repository
	addresses   *addressrepo.Repository
	sources     *datasourcerepo.Repository
	emitter     *events.Emitter
	producer    *kafka.Producer
	runID       string

	shutdownTracing func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "ingest",
		Short:         "UK postcode and address ingestion pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown(cmd.Context())
		},
	}

	root.AddCommand(
		newInitDBCmd(a),
		newDownloadCmd(a),
		newLoadPostcodesCmd(a),
		newLoadOSMCmd(a),
		newMergeCmd(a),
		newStatusCmd(a),
		newAllCmd(a),
	)

	return root
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.PrettyLogs)
	a.runID = uuid.NewString()

	shutdown, err := tracing.Setup(ctx, cfg.AppName, cfg.TracingEndpoint)
	if err != nil {
		return err
	}
	a.shutdownTracing = shutdown

	sqlxDB, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	a.sqlxDB = sqlxDB
	a.db = database.NewDatabaseInstance(sqlxDB, a.logger)

	a.transformer = coords.NewTransformer()
	a.postcodes = postcoderepo.New(a.db, a.logger)
	a.addresses = addressrepo.New(a.db, a.logger)
	a.sources = datasourcerepo.New(a.db, a.logger)

	if cfg.KafkaEnabled {
		a.producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, a.logger)
		a.emitter = events.NewEmitter(a.producer, a.logger)
	}

	return nil
}

func (a *app) teardown(ctx context.Context) {
	if a.producer != nil {
		_ = a.producer.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.shutdownTracing != nil {
		_ = a.shutdownTracing(context.WithoutCancel(ctx))
	}
}
