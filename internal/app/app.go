package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/davicafu/hexashop/internal/config"
	identityApp "github.com/davicafu/hexashop/internal/identity/application"
	identityDomain "github.com/davicafu/hexashop/internal/identity/domain"
	identityEvents "github.com/davicafu/hexashop/internal/identity/infra/inbound/events"
	identityHttp "github.com/davicafu/hexashop/internal/identity/infra/inbound/http"
	identityDB "github.com/davicafu/hexashop/internal/identity/infra/outbound/db"
	"github.com/davicafu/hexashop/internal/shared/domain"
	"github.com/davicafu/hexashop/internal/shared/infra/analytics/clickhouse"
	infraEvents "github.com/davicafu/hexashop/internal/shared/infra/events"
	sharedHttp "github.com/davicafu/hexashop/internal/shared/infra/inbound/http"
	"github.com/davicafu/hexashop/internal/shared/infra/inbox"
	"github.com/davicafu/hexashop/internal/shared/infra/outbox"
	"github.com/davicafu/hexashop/internal/shared/infra/platform/cache"
	"github.com/davicafu/hexashop/internal/shared/infra/platform/db/sqlstore"
	shopApp "github.com/davicafu/hexashop/internal/shop/application"
	shopDomain "github.com/davicafu/hexashop/internal/shop/domain"
	shopEvents "github.com/davicafu/hexashop/internal/shop/infra/inbound/events"
	shopHttp "github.com/davicafu/hexashop/internal/shop/infra/inbound/http"
	shopDB "github.com/davicafu/hexashop/internal/shop/infra/outbound/db"
)

const shutdownTimeout = 10 * time.Second

// App es el proceso completo: dos contextos acotados, cada uno con su base de datos y su outbox,
// unidos solo por eventos de integración.
type App struct {
	cfg   *config.Config
	log   *zap.Logger
	clock clockwork.Clock

	Registry  *prometheus.Registry
	Identity  *outbox.Module
	Shop      *outbox.Module
	Users     *identityApp.UserService
	Customers *shopApp.CustomerService
	Router    *gin.Engine

	consumers []consumer
	transport *transport
	closers   []func() error
}

// New abre bases de datos, transporte y caché, y compone todo. Si falla, libera lo abierto.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *App, err error) {
	a := &App{
		cfg:      cfg,
		log:      log,
		clock:    clockwork.NewRealClock(),
		Registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// ---------------- DB ----------------
	identitySQL, identityDialect, err := a.openDB(ctx, "identity", cfg.Identity)
	if err != nil {
		return nil, err
	}
	shopSQL, shopDialect, err := a.openDB(ctx, "shop", cfg.Shop)
	if err != nil {
		return nil, err
	}

	userRepo := identityDB.NewUserRepo(identitySQL, identityDialect)
	if err := userRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("identity schema: %w", err)
	}
	customerRepo := shopDB.NewCustomerRepo(shopSQL, shopDialect)
	if err := customerRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("shop schema: %w", err)
	}

	// ---------------- Cache ----------------
	c := a.openCache(ctx)

	// ---------------- Events ---------------
	a.transport, err = newTransport(ctx, cfg, allTopics(), log)
	if err != nil {
		return nil, err
	}

	// ------------ Outbox ------------
	publisher := a.transport.bus
	if cfg.Outbox.BreakerThreshold > 0 {
		publisher = infraEvents.NewBreakerBus(a.transport.name, publisher, infraEvents.BreakerConfig{
			FailureThreshold: cfg.Outbox.BreakerThreshold,
			OpenTimeout:      cfg.Outbox.BreakerTimeout,
		}, log)
	}
	metrics := outbox.NewMetrics(a.Registry)
	attemptLog := a.openAttemptLog(ctx)

	identityDeps := outbox.ModuleDeps{
		DB: identitySQL, Dialect: identityDialect, Mapper: identityApp.NewMapper(),
		Bus: publisher, Clock: a.clock, Metrics: metrics, Log: log,
	}
	shopDeps := outbox.ModuleDeps{
		DB: shopSQL, Dialect: shopDialect, Mapper: shopApp.NewMapper(),
		Bus: publisher, Clock: a.clock, Metrics: metrics, Log: log,
	}
	var summaries sharedHttp.AttemptSummarizer
	if attemptLog != nil {
		identityDeps.AttemptLog = attemptLog
		shopDeps.AttemptLog = attemptLog
		summaries = attemptLog
	}

	a.Identity, err = outbox.NewModule(ctx, a.moduleConfig("identity", identityDomain.OutboxTable, identityDomain.DefaultTopic, identityDomain.Topics()), identityDeps)
	if err != nil {
		return nil, fmt.Errorf("identity outbox: %w", err)
	}
	a.Shop, err = outbox.NewModule(ctx, a.moduleConfig("shop", shopDomain.OutboxTable, shopDomain.DefaultTopic, shopDomain.Topics()), shopDeps)
	if err != nil {
		return nil, fmt.Errorf("shop outbox: %w", err)
	}

	// --------------- Servicios --------------
	a.Users = identityApp.NewUserService(userRepo, a.Identity.UoW, c, log,
		identityApp.WithClock(a.clock),
		identityApp.WithCacheTTL(cfg.Redis.CacheTTL),
	)
	a.Customers = shopApp.NewCustomerService(customerRepo, a.Shop.UoW, a.clock, log)

	// ------------ Consumidores ------------
	identityProcessor := infraEvents.NewProcessor("identity", log,
		infraEvents.WithInboxGuard(inbox.NewGuard(c, "identity", cfg.Inbox.TTL)),
		infraEvents.WithProcessorClock(a.clock),
	)
	identityEvents.NewCustomerIDConsumer(a.Users, log).Register(identityProcessor)

	shopProcessor := infraEvents.NewProcessor("shop", log,
		infraEvents.WithInboxGuard(inbox.NewGuard(c, "shop", cfg.Inbox.TTL)),
		infraEvents.WithProcessorClock(a.clock),
	)
	shopEvents.NewUserRegisteredConsumer(a.Customers, log).Register(shopProcessor)

	if err := a.subscribe(ctx, "identity", []string{shopDomain.CustomerTopic}, identityProcessor); err != nil {
		return nil, err
	}
	if err := a.subscribe(ctx, "shop", []string{identityDomain.UserTopic}, shopProcessor); err != nil {
		return nil, err
	}

	// ---------------- HTTP ----------------
	gin.SetMode(gin.ReleaseMode)
	a.Router = gin.New()
	a.Router.Use(gin.Recovery(), accessLog(log))
	identityHttp.RegisterUserRoutes(a.Router, identityHttp.NewUserHandler(a.Users, log))
	shopHttp.RegisterCustomerRoutes(a.Router, shopHttp.NewCustomerHandler(a.Customers, log))
	sharedHttp.RegisterOutboxAdminRoutes(a.Router, sharedHttp.NewOutboxAdminHandler(map[string]domain.OutboxStore{
		"identity": a.Identity.Store,
		"shop":     a.Shop.Store,
	}, summaries, log))
	sharedHttp.RegisterSystemRoutes(a.Router, a.Registry)

	return a, nil
}

// Run bloquea hasta que ctx se cancele o algún componente falle.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, m := range []*outbox.Module{a.Identity, a.Shop} {
		m := m
		g.Go(func() error {
			m.Run(gctx)
			return nil
		})
	}
	for _, c := range a.consumers {
		c := c
		g.Go(func() error { return c.Run(gctx) })
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.HTTPPort,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		a.log.Info("🚀 Server running", zap.String("url", "http://localhost:"+a.cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// Close libera transporte, caché y bases de datos en orden inverso de apertura.
func (a *App) Close() {
	if a.transport != nil {
		a.transport.close()
		a.transport = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *App) openDB(ctx context.Context, name string, cfg config.DatabaseConfig) (*sql.DB, sqlstore.Dialect, error) {
	db, dialect, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, sqlstore.Dialect{}, fmt.Errorf("%s db: %w", name, err)
	}
	a.closers = append(a.closers, db.Close)
	a.log.Info("✅ Base de datos abierta", zap.String("context", name), zap.String("driver", dialect.Name))
	return db, dialect, nil
}

// openCache usa Redis si responde y si no, caché en memoria.
func (a *App) openCache(ctx context.Context) cache.Cache {
	ttl := a.cfg.Redis.CacheTTL
	if a.cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr})
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := rdb.Ping(pctx).Err()
		if err == nil {
			a.closers = append(a.closers, rdb.Close)
			a.log.Info("✅ Redis conectado, cache habilitado")
			return cache.NewRedisCache(rdb, ttl, "hexashop:")
		}
		a.log.Warn("⚠️ Redis no disponible, cache en memoria", zap.Error(err))
		_ = rdb.Close()
	}
	mem := cache.NewInMemoryCache(ttl, 3*ttl, a.clock)
	a.closers = append(a.closers, func() error { mem.Stop(); return nil })
	return mem
}

// openAttemptLog es best effort: sin ClickHouse el outbox funciona igual.
func (a *App) openAttemptLog(ctx context.Context) *clickhouse.AttemptLogRepo {
	if !a.cfg.ClickHouse.Enabled {
		return nil
	}
	db, err := clickhouse.Open(ctx, a.cfg.ClickHouse.Addr, a.cfg.ClickHouse.Database)
	if err != nil {
		a.log.Warn("⚠️ ClickHouse no disponible, sin registro de intentos", zap.Error(err))
		return nil
	}
	repo := clickhouse.NewAttemptLogRepo(db)
	if err := repo.InitSchema(ctx); err != nil {
		a.log.Warn("⚠️ ClickHouse sin esquema, sin registro de intentos", zap.Error(err))
		_ = db.Close()
		return nil
	}
	a.closers = append(a.closers, db.Close)
	return repo
}

func (a *App) moduleConfig(name, table, defaultTopic string, topics map[string]string) outbox.ModuleConfig {
	o := a.cfg.Outbox
	return outbox.ModuleConfig{
		Name:         name,
		Table:        table,
		DefaultTopic: defaultTopic,
		Topics:       topics,
		Dispatch: outbox.Config{
			PollInterval:   o.PollInterval,
			BatchSize:      o.BatchSize,
			MaxAttempts:    o.MaxAttempts,
			PublishTimeout: o.PublishTimeout,
		},
		Retention:       o.Retention,
		CleanupInterval: o.CleanupInterval,
	}
}

func (a *App) subscribe(ctx context.Context, name string, topics []string, p *infraEvents.Processor) error {
	c, err := a.transport.subscribe(ctx, name, topics, p.Handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", name, err)
	}
	a.log.Info("🎧 Consumidor registrado",
		zap.String("consumer", name),
		zap.Strings("topics", topics),
		zap.Strings("types", p.Types()),
		zap.String("transport", a.transport.name),
	)
	a.consumers = append(a.consumers, c)
	return nil
}

func allTopics() []string {
	out := []string{identityDomain.DefaultTopic, shopDomain.DefaultTopic}
	for _, t := range identityDomain.Topics() {
		out = append(out, t)
	}
	for _, t := range shopDomain.Topics() {
		out = append(out, t)
	}
	return out
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
