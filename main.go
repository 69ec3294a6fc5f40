package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/billbatista/acasinha-trips/balance"
	"github.com/billbatista/acasinha-trips/budget"
	"github.com/billbatista/acasinha-trips/config"
	"github.com/billbatista/acasinha-trips/database"
	"github.com/billbatista/acasinha-trips/eventlogger"
	"github.com/billbatista/acasinha-trips/expense"
	"github.com/billbatista/acasinha-trips/logger"
	"github.com/billbatista/acasinha-trips/member"
	"github.com/billbatista/acasinha-trips/memstore"
	"github.com/billbatista/acasinha-trips/notify"
	"github.com/billbatista/acasinha-trips/server"
	"github.com/billbatista/acasinha-trips/session"
	"github.com/billbatista/acasinha-trips/trip"
	"github.com/billbatista/acasinha-trips/user"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	hubBufferSize   = 32
	shutdownTimeout = 10 * time.Second
)

// storage groups the repositories of one backend.
type storage struct {
	users         user.Repository
	sessions      session.Repository
	trips         trip.Repository
	members       member.Repository
	budget        budget.Repository
	spending      expense.Repository
	notifications notify.Repository
	events        eventlogger.Store
	close         func() error
}

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		printErrorAndExit(log, "opening storage", err)
	}
	defer store.close()

	sink, closeSinks := eventSinks(cfg.Events, store.events, log)
	defer closeSinks()

	worker := eventlogger.NewWorker(sink, cfg.Events.BufferSize, log)
	worker.Start()
	defer worker.Shutdown()

	hub := notify.NewHub(hubBufferSize, log)
	notifier := notify.NewNotifier(store.notifications, hub, log)

	trips := trip.NewService(store.trips, notifier, worker, log)
	members := member.NewService(store.members, trips, store.users, notifier, worker, log)

	srv := server.New(server.Deps{
		Users:          store.users,
		Sessions:       store.sessions,
		Trips:          trips,
		Members:        members,
		Budget:         budget.NewService(store.budget, trips, members, notifier, worker, log),
		Spending:       expense.NewService(store.spending, trips, members, notifier, worker, log),
		Balances:       balance.NewService(trips, members, store.budget, store.spending, log),
		Notifier:       notifier,
		Hub:            hub,
		Activity:       store.events,
		Events:         worker,
		Log:            log,
		SecureCookies:  cfg.HTTP.SecureCookies,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})

	var wg sync.WaitGroup
	reconciler := balance.NewReconciler(store.members, cfg.Reconcile.Interval, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		reconciler.Run(ctx)
	}()

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutting down http server")
		}
	}()

	log.WithFields(logrus.Fields{
		"addr":    cfg.HTTP.Addr,
		"storage": cfg.Storage,
	}).Info("starting server")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("http server stopped")
		stop()
	}

	wg.Wait()
	log.Info("server stopped")
}

func openStorage(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*storage, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		s := memstore.New()
		return &storage{
			users:         s.Users(),
			sessions:      s.Sessions(),
			trips:         s.Trips(),
			members:       s.Members(),
			budget:        s.Budget(),
			spending:      s.Spending(),
			notifications: s.Notifications(),
			events:        s.Events(),
			close:         func() error { return nil },
		}, nil
	}

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	return sqlStorage(db), nil
}

func sqlStorage(db *sql.DB) *storage {
	return &storage{
		users:         user.NewRepository(db),
		sessions:      session.NewRepository(db),
		trips:         trip.NewRepository(db),
		members:       member.NewRepository(db),
		budget:        budget.NewRepository(db),
		spending:      expense.NewRepository(db),
		notifications: notify.NewRepository(db),
		events:        eventlogger.NewSqlEventLogger(db),
		close:         db.Close,
	}
}

// eventSinks fans audit events out to the store plus Kafka and RabbitMQ when
// they are configured.
func eventSinks(cfg config.EventsConfig, store eventlogger.Store, log *logrus.Logger) (eventlogger.Sink, func()) {
	sinks := eventlogger.MultiSink{store}
	var closers []func() error

	if len(cfg.KafkaBrokers) > 0 {
		k := eventlogger.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		sinks = append(sinks, k)
		closers = append(closers, k.Close)
		log.WithField("topic", cfg.KafkaTopic).Info("publishing events to kafka")
	}

	if cfg.AMQPURL != "" {
		a, err := eventlogger.NewAMQPSink(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.WithError(err).Error("rabbitmq unavailable, events will not be published there")
		} else {
			sinks = append(sinks, a)
			closers = append(closers, a.Close)
			log.WithField("exchange", cfg.AMQPExchange).Info("publishing events to rabbitmq")
		}
	}

	return sinks, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.WithError(err).Warn("closing event sink")
			}
		}
	}
}

func printErrorAndExit(log *logrus.Logger, msg string, err error) {
	log.WithError(err).Error(msg)
	os.Exit(1)
}
