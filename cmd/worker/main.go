// Worker consumes change-data-capture events from Kafka and propagates them
// to the derived projections: the blob mirror, student license summaries,
// admin associations, companion app documents, and notification counters.
// Set DATABASE_URL, KAFKA_BROKERS, and the MIRROR_* variables; see .env.example.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	apprepo "classtrack-sync/backend/internal/app/repository"
	"classtrack-sync/backend/internal/config"
	"classtrack-sync/backend/internal/db"
	"classtrack-sync/backend/internal/deadletter"
	"classtrack-sync/backend/internal/event"
	licensefanout "classtrack-sync/backend/internal/license/fanout"
	"classtrack-sync/backend/internal/mirror"
	"classtrack-sync/backend/internal/notification/counter"
	"classtrack-sync/backend/internal/security"
	studentfanout "classtrack-sync/backend/internal/student/fanout"
	studentrepo "classtrack-sync/backend/internal/student/repository"
	"classtrack-sync/backend/internal/telemetry"
	"classtrack-sync/backend/internal/telemetry/otel"
	"classtrack-sync/backend/internal/template"
	userrepo "classtrack-sync/backend/internal/user/repository"
)

// retry backoff bounds for failed events. A failed propagation blocks the
// partition until it succeeds; downstream stores converge on retry because
// every handler is idempotent.
const (
	initialBackoff = time.Second
	maxBackoff     = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.MirrorEndpoint == "" {
		log.Fatal("worker: MIRROR_ENDPOINT is required")
	}
	if cfg.TemplateURL == "" {
		log.Fatal("worker: TEMPLATE_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "classtrack-propagation-worker", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = providers.Shutdown(shutdownCtx)
	}()
	recorder := telemetry.NewRecorder(providers.MeterProvider, providers.LoggerProvider)

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	store, err := mirror.NewMinioStore(cfg.MirrorEndpoint, cfg.MirrorAccessKey, cfg.MirrorSecretKey, cfg.MirrorBucket, cfg.MirrorUseSSL)
	if err != nil {
		log.Fatalf("mirror: %v", err)
	}

	tokens, err := security.NewServiceTokenProvider(cfg.ServiceTokenSecret, "classtrack-propagation-worker", cfg.ServiceTokenLifetime())
	if err != nil {
		log.Fatalf("service tokens: %v", err)
	}
	applier, err := template.NewClient(cfg.TemplateURL, tokens)
	if err != nil {
		log.Fatalf("template client: %v", err)
	}

	students := studentrepo.NewPostgresRepository(database)
	users := userrepo.NewPostgresRepository(database)
	apps := apprepo.NewPostgresRepository(database)

	licenseHandler, err := licensefanout.NewHandler(students, users, store, applier, cfg.TemplateBatchSize)
	if err != nil {
		log.Fatalf("license handler: %v", err)
	}

	dispatcher := event.NewDispatcher()
	dispatcher.Register(licensefanout.EntityType, licenseHandler.HandleEnvelope)
	dispatcher.Register(studentfanout.EntityType,
		studentfanout.NewHandler(apps, store).HandleEnvelope)
	dispatcher.Register(counter.EntityType,
		counter.NewMaintainer(users).HandleEnvelope)

	rejects := deadletter.NewKafkaProducer(brokers, cfg.DeadLetterTopic)
	defer func() { _ = rejects.Close() }()

	go serveHealth(ctx, cfg.GRPCAddr)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    cfg.CDCTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  1 * time.Second,
	})
	defer reader.Close()

	log.Printf("worker: consuming from %s (group %s)", cfg.CDCTopic, cfg.KafkaGroupID)
	consume(ctx, reader, dispatcher, rejects, recorder)
	log.Println("worker: stopped")
}

// consume reads one message at a time, in partition order, and commits only
// after the event is fully handled or dead-lettered. Failed events are
// retried in place with capped backoff; skipping ahead would reorder the
// per-entity change stream.
func consume(ctx context.Context, reader *kafka.Reader, dispatcher *event.Dispatcher, rejects *deadletter.KafkaProducer, recorder telemetry.Recorder) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("worker: kafka fetch error: %v", err)
			continue
		}

		backoff := initialBackoff
		for {
			entityType, err := dispatcher.Dispatch(ctx, msg.Value)
			if err == nil {
				recorder.EventProcessed(ctx, entityType)
				break
			}

			var reject *event.RejectError
			if errors.As(err, &reject) {
				log.Printf("worker: rejecting event at offset %d: %v", msg.Offset, reject.Reason)
				recorder.EventRejected(ctx, reject.Reason.Error())
				if err := rejects.Reject(ctx, msg.Value, reject.Reason.Error()); err != nil {
					log.Printf("worker: dead-letter write failed, dropping event: %v", err)
				}
				break
			}

			log.Printf("worker: %s event at offset %d failed, retrying in %s: %v", entityType, msg.Offset, backoff, err)
			recorder.EventFailed(ctx, entityType, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < maxBackoff {
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("worker: commit failed: %v", err)
		}
	}
}

// serveHealth exposes the standard gRPC health service so orchestrators can
// probe worker liveness.
func serveHealth(ctx context.Context, addr string) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("worker: health listen: %v", err)
		return
	}

	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		healthServer.Shutdown()
		s.GracefulStop()
	}()

	log.Printf("worker: health server listening on %s", addr)
	if err := s.Serve(lis); err != nil {
		log.Printf("worker: health serve: %v", err)
	}
}
