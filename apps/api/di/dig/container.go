package dig_container

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/audit"
	cachesvc "github.com/trezcool/mahudhurio/services/cache"
	emailsvc "github.com/trezcool/mahudhurio/services/email"
	logsvc "github.com/trezcool/mahudhurio/services/logger"
	metricsvc "github.com/trezcool/mahudhurio/services/metrics"
	"github.com/trezcool/mahudhurio/services/scheduler"
	"github.com/trezcool/mahudhurio/storage/database"
	boiledrepos "github.com/trezcool/mahudhurio/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/mahudhurio/storage/database/sqlx"
)

const dbSetupTimeout = time.Minute

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.New("API : ", conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.New("DB : ", conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sql.DB, core.DB) {
	ctx, cancel := context.WithTimeout(context.Background(), dbSetupTimeout)
	defer cancel()

	db, err := database.Setup(ctx, conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newAttendanceRepository(db core.DB) attendance.Repository {
	return boiledrepos.NewAttendanceRepository(db)
}

func newAuditRepository(db *sql.DB) audit.Repository {
	return sqlxrepos.NewAuditRepository(db)
}

// newCache returns the Redis cache when enabled. An unreachable Redis disables caching.
func newCache(conf *core.Config, logger core.Logger) attendance.Cache {
	if !conf.Redis.Enabled {
		return attendance.NopCache{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.QueryTimeout)
	defer cancel()

	client, err := cachesvc.NewRedisClient(ctx, conf)
	if err != nil {
		logger.Error(fmt.Sprintf("connecting to redis, caching disabled: %v", err), err)
		return attendance.NopCache{}
	}
	return cachesvc.NewRedisCache(client, conf.Redis.TTL)
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newGatherer(reg *prometheus.Registry) prometheus.Gatherer {
	return reg
}

func newObserver(reg *prometheus.Registry) (attendance.Observer, error) {
	return metricsvc.NewObserver(reg)
}

func newScheduler(svc *attendance.Service, auditSvc *audit.Service, logger core.Logger, conf *core.Config) (*scheduler.Scheduler, error) {
	return scheduler.New(svc, auditSvc, logger, conf)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(newAttendanceRepository))
	must(c.Provide(newAuditRepository))
	must(c.Provide(newCache))
	must(c.Provide(newRegistry))
	must(c.Provide(newGatherer))
	must(c.Provide(newObserver))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(attendance.NewService))
	must(c.Provide(audit.NewService))
	must(c.Provide(newScheduler))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
