// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/infrastructure/queue"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/infrastructure/roster"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/infrastructure/zoom"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/infrastructure/zoom/api"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/runner"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/service"
)

const (
	natsDrainTimeout     = 25 * time.Second
	natsReconnectWait    = 2 * time.Second
	natsMaxReconnects    = 10
	shutdownGracePeriod  = 30 * time.Second
	connectionSetupLimit = 15 * time.Second
)

// repositories are the NATS KV backed stores of the service.
type repositories struct {
	Installation  *store.NatsInstallationRepository
	Session       *store.NatsSessionRepository
	AttendanceLog *store.NatsAttendanceLogRepository
	SkippedDay    *store.NatsSkippedDayRepository
}

// app holds the connections and services shared by the run and worker commands.
type app struct {
	natsConn    *nats.Conn
	mongoClient *mongo.Client
	redisClient *redis.Client
	asynqClient *asynq.Client
	repos       *repositories
	queue       *queue.Client
	runner      *runner.Runner
}

// redisClientOpt is the asynq view of the Redis settings.
func redisClientOpt(env environment) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     env.RedisAddr,
		Password: env.RedisPassword,
		DB:       env.RedisDB,
	}
}

// setupNATS connects to NATS with reconnect and drain handling.
func setupNATS(env environment) (*nats.Conn, error) {
	conn, err := nats.Connect(
		env.NatsURL,
		nats.Name("lfx-v2-attendance-service"),
		nats.DrainTimeout(natsDrainTimeout),
		nats.ReconnectWait(natsReconnectWait),
		nats.MaxReconnects(natsMaxReconnects),
		nats.ConnectHandler(func(_ *nats.Conn) {
			slog.With("nats_url", env.NatsURL).Info("NATS connection established")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.With(logging.ErrKey, err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.With("nats_url", c.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				slog.With(logging.ErrKey, err, "subject", s.Subject).Error("async NATS error")
				return
			}
			slog.With(logging.ErrKey, err).Error("async NATS error outside subscription")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// getKeyValueStores binds the repositories to their KV buckets. The buckets
// are provisioned with the deployment and must exist.
func getKeyValueStores(ctx context.Context, natsConn *nats.Conn) (*repositories, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	buckets := map[string]jetstream.KeyValue{}
	for _, name := range []string{
		store.KVStoreNameInstallations,
		store.KVStoreNameSessions,
		store.KVStoreNameAttendanceLog,
		store.KVStoreNameSkippedDays,
	} {
		kv, err := js.KeyValue(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to bind KV bucket %s: %w", name, err)
		}
		buckets[name] = kv
	}

	return &repositories{
		Installation:  store.NewNatsInstallationRepository(buckets[store.KVStoreNameInstallations]),
		Session:       store.NewNatsSessionRepository(buckets[store.KVStoreNameSessions]),
		AttendanceLog: store.NewNatsAttendanceLogRepository(buckets[store.KVStoreNameAttendanceLog]),
		SkippedDay:    store.NewNatsSkippedDayRepository(buckets[store.KVStoreNameSkippedDays]),
	}, nil
}

// setupRedis opens the shared Redis client and checks it responds.
func setupRedis(ctx context.Context, env environment) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     env.RedisAddr,
		Password: env.RedisPassword,
		DB:       env.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", env.RedisAddr, err)
	}
	return client, nil
}

// newApp connects every backend and wires the reconciliation services.
func newApp(ctx context.Context, env environment) (*app, error) {
	a := &app{}
	setupCtx, cancel := context.WithTimeout(ctx, connectionSetupLimit)
	defer cancel()

	var err error
	if a.natsConn, err = setupNATS(env); err != nil {
		return nil, err
	}
	if a.repos, err = getKeyValueStores(setupCtx, a.natsConn); err != nil {
		a.close(ctx)
		return nil, err
	}
	if a.mongoClient, err = roster.Connect(setupCtx, env.MongoURI); err != nil {
		a.close(ctx)
		return nil, err
	}
	if a.redisClient, err = setupRedis(setupCtx, env); err != nil {
		a.close(ctx)
		return nil, err
	}
	a.asynqClient = asynq.NewClient(redisClientOpt(env))
	a.queue = queue.NewClient(a.asynqClient)

	rosterProvider := roster.NewMongoRosterProvider(a.mongoClient.Database(env.MongoDatabase), env.TeacherRoles)

	zoomClient := api.NewClient(api.Config{
		AccountID:    env.ZoomConfig.AccountID,
		ClientID:     env.ZoomConfig.ClientID,
		ClientSecret: env.ZoomConfig.ClientSecret,
		TokenStore:   api.NewRedisTokenStore(a.redisClient),
	})
	dataSource := zoom.NewProvider(zoomClient, rosterProvider, a.queue)
	slog.Info("Zoom data source configured",
		"account_id", env.ZoomConfig.AccountID,
		"client_id", env.ZoomConfig.ClientID)

	detector := service.NewIrregularMeetingDetector(env.IrregularMinDuration, env.IrregularMinParticipants)
	reconciler := service.NewAttendanceReconciler(
		a.repos.Session,
		a.repos.AttendanceLog,
		dataSource,
		rosterProvider,
		detector,
	)
	cursor := service.NewDailyIngestionCursor(
		a.repos.Installation,
		a.repos.SkippedDay,
		dataSource,
		reconciler,
		messaging.NewMessageBuilder(a.natsConn),
	)

	dayPause := env.DayPause
	if dayPause == 0 {
		dayPause = -1
	}
	loop := service.NewChunkedRunLoop(cursor, service.RunLoopConfig{
		MaxDays:          env.MaxDaysPerRun,
		MaxExecutionTime: env.MaxExecutionTime,
		DayPause:         dayPause,
	})

	a.runner = runner.NewRunner(a.repos.Installation, loop, dataSource, env.WorkerConcurrency)
	return a, nil
}

// close releases the connections in reverse order of setup.
func (a *app) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGracePeriod)
	defer cancel()

	var errs []error
	if a.asynqClient != nil {
		errs = append(errs, a.asynqClient.Close())
	}
	if a.redisClient != nil {
		errs = append(errs, a.redisClient.Close())
	}
	if a.mongoClient != nil {
		errs = append(errs, a.mongoClient.Disconnect(ctx))
	}
	if a.natsConn != nil && !a.natsConn.IsClosed() {
		errs = append(errs, a.natsConn.Drain())
	}
	if err := errors.Join(errs...); err != nil {
		slog.With(logging.ErrKey, err).Warn("error closing connections")
	}
}
