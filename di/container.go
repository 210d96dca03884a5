package di

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/AnaEHC/semaforo-app/api"
	"github.com/AnaEHC/semaforo-app/api/semaforo"
	"github.com/AnaEHC/semaforo-app/calendar"
	"github.com/AnaEHC/semaforo-app/config"
	"github.com/AnaEHC/semaforo-app/dao/redis"
	"github.com/AnaEHC/semaforo-app/db"
	"github.com/AnaEHC/semaforo-app/engine"
	"github.com/AnaEHC/semaforo-app/export"
	"github.com/AnaEHC/semaforo-app/models"
	"github.com/AnaEHC/semaforo-app/server"
	"github.com/AnaEHC/semaforo-app/server/handlers"
	services "github.com/AnaEHC/semaforo-app/service"
)

// Container holds all application dependencies.
type Container struct {
	Config                    config.Config
	RedisClient               db.RedisClient
	RedisClientDao            *redis.RedisClientDAO
	SemaforoAPI               semaforo.SemaforoAPI
	Calendar                  *calendar.BusinessCalendar
	StatusEngine              *engine.StatusEngine
	Lifecycle                 *engine.Lifecycle
	ExcelExporter             *export.ExcelExporter
	SemaforoService           *services.SemaforoService
	LifecycleRefresherService *services.LifecycleRefresherService
	ClientHandler             *handlers.ClientHandler
	MuxRouter                 *mux.Router
	Router                    *server.Router
	SemaforoHttpServer        *server.SemaforoHttpServer

	closers []func() error
}

// NewContainer initializes and wires up all dependencies. Outside prod the
// record store and Redis are in-memory fakes seeded from resources/.
func NewContainer(ctx context.Context, cfg config.Config) (*Container, error) {
	log.Info().Str("component", "di").Str("env", cfg.Env).Msg("initializing container")
	c := &Container{Config: cfg}
	prod := cfg.Env == "prod"

	// Redis
	if prod {
		redisInternalClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		redisClient, err := db.NewGoRedisClient(ctx, redisInternalClient)
		if err != nil {
			_ = redisInternalClient.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		c.RedisClient = redisClient
		c.closers = append(c.closers, redisClient.Close)
	} else {
		c.RedisClient = db.NewMockRedisClient(ctx)
		log.Info().Str("component", "di").Msg("using in-memory redis")
	}
	c.RedisClientDao = redis.NewRedisClientDAO(c.RedisClient)

	// Record store
	if prod {
		httpClient := api.NewHTTPClient(cfg.API.URL, cfg.API.Timeout)
		c.SemaforoAPI = semaforo.NewSemaforoApiClient(httpClient)
		log.Info().Str("component", "di").Str("url", cfg.API.URL).Msg("using record store api")
	} else {
		c.SemaforoAPI = semaforo.NewSemaforoApiClientMock(
			config.GetResourcePath(config.CLIENTS_RESOURCE),
			config.GetResourcePath(config.HOLIDAYS_RESOURCE),
		)
		log.Info().Str("component", "di").Msg("using mock record store")
	}

	// Calendar and engine
	loc := cfg.Location()
	today := func() models.Date { return models.Today(loc) }
	products := cfg.ProductSet()

	c.Calendar = calendar.New(semaforo.LoadHolidays(ctx, c.SemaforoAPI))
	c.StatusEngine = engine.NewStatusEngine(products)
	c.Lifecycle = engine.NewLifecycle(c.Calendar)

	// Services
	c.ExcelExporter = export.NewExcelExporter(cfg.ExportDir, cfg.Sweep.User, products, today)
	c.SemaforoService = services.NewSemaforoService(
		c.SemaforoAPI,
		c.RedisClientDao,
		c.StatusEngine,
		c.Lifecycle,
		cfg.Thresholds,
		c.ExcelExporter,
		today,
	)
	c.LifecycleRefresherService = services.NewLifecycleRefresherService(
		c.SemaforoAPI,
		c.RedisClientDao,
		c.StatusEngine,
		c.Lifecycle,
		export.NewDedupExporter(c.ExcelExporter, c.RedisClientDao),
		time.Now,
		loc,
	)

	// HTTP
	c.ClientHandler = handlers.NewClientHandler(c.SemaforoService, c.LifecycleRefresherService)
	c.MuxRouter = mux.NewRouter()
	c.Router = server.NewRouter(c.ClientHandler, c.MuxRouter)
	c.SemaforoHttpServer = server.NewSemaforoHttpServer(c.Router, c.MuxRouter, cfg.Server.Addr)

	return c, nil
}

// Close releases external connections.
func (c *Container) Close() {
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			log.Warn().Str("component", "di").Err(err).Msg("close failed")
		}
	}
}
