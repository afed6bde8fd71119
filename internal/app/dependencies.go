package app

import (
	"context"
	"fmt"

	"github.com/planit/planit/internal/clock"
	"github.com/planit/planit/internal/config"
	"github.com/planit/planit/internal/database"
	"github.com/planit/planit/internal/event_bus"
	"github.com/planit/planit/internal/metrics"
	"github.com/planit/planit/pkg/calendar"
	"github.com/planit/planit/pkg/event"
	"github.com/planit/planit/pkg/user"
	log "github.com/sirupsen/logrus"
)

// Stores are the repositories backing the services, opened for the configured driver.
type Stores struct {
	UserRepo  user.Repo
	EventRepo event.Repository
	Close     func()
}

// OpenStores connects to the configured store, preparing its schema or indexes.
func OpenStores(ctx context.Context, cfg config.Application) (Stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		if err := database.Migrate(cfg.Database); err != nil {
			return Stores{}, err
		}
		db, err := database.Open(cfg.Database)
		if err != nil {
			return Stores{}, err
		}
		log.Infof("Using postgres store at %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
		return Stores{
			UserRepo:  user.NewUserRepo(db),
			EventRepo: event.NewPostgresRepository(db),
			Close:     db.Close,
		}, nil

	case config.StoreDriverMongo:
		db, disconnect, err := database.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return Stores{}, err
		}
		userRepo := user.NewMongoRepo(db)
		eventRepo := event.NewMongoRepository(db)
		if err := userRepo.EnsureIndexes(ctx); err != nil {
			_ = disconnect(ctx)
			return Stores{}, err
		}
		if err := eventRepo.EnsureIndexes(ctx); err != nil {
			_ = disconnect(ctx)
			return Stores{}, err
		}
		log.Infof("Using mongo store, database %s", cfg.Mongo.Database)
		return Stores{
			UserRepo:  userRepo,
			EventRepo: eventRepo,
			Close: func() {
				if err := disconnect(context.Background()); err != nil {
					log.Errorf("failed to disconnect from mongo: %v", err)
				}
			},
		}, nil
	}
	return Stores{}, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    clock.Clock
	EventBus *event_bus.EventBus

	UserService user.Service
	UserHandler *user.Handler

	EventService event.Service
	EventHandler *event.Handler

	CalendarService calendar.Service
	CalendarHandler *calendar.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(stores Stores, clk clock.Clock, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = clk
	deps.EventBus = event_bus.NewEventBus()
	if cfg.Metrics.Enabled {
		metrics.SubscribeEvents(deps.EventBus)
	}

	deps.UserService = user.NewUserService(stores.UserRepo)
	deps.UserHandler = user.NewHandler(deps.UserService)

	eventService := event.NewEventService(stores.EventRepo, deps.Clock, deps.EventBus, event.Options{
		RejectPastDates: cfg.Events.RejectPastDates,
	})
	deps.EventService = eventService
	deps.EventHandler = event.NewEventHandler(eventService)

	deps.CalendarService = calendar.NewService(eventService, deps.Clock, calendar.Options{
		NavigationMonths: cfg.Calendar.NavigationMonths,
	})
	deps.CalendarHandler = calendar.NewHandler(deps.CalendarService)

	return deps
}
