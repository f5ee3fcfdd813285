package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/trezcool/masomo-reports/apps/api/echo"
	"github.com/trezcool/masomo-reports/core"
	"github.com/trezcool/masomo-reports/core/export"
	"github.com/trezcool/masomo-reports/core/report"
	"github.com/trezcool/masomo-reports/services/email"
	"github.com/trezcool/masomo-reports/services/logger"
	"github.com/trezcool/masomo-reports/storage/database"
	"github.com/trezcool/masomo-reports/storage/database/inmem"
	"github.com/trezcool/masomo-reports/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %+v", err)
	}

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	exportLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "EXPORT : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	var repo report.Repository
	if conf.Database.InMemory {
		repo = inmemdb.NewReportRepository(inmemdb.Open())
	} else {
		if err = database.CreateIfNotExist(conf); err != nil {
			dbLogger.Fatal(fmt.Sprintf("creating database: %v", err), err)
		}
		db, err := database.Open(conf)
		if err != nil {
			dbLogger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		}()
		if err = database.Migrate(db.DB); err != nil {
			dbLogger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
		}
		repo = sqlxrepos.NewReportRepository(db)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	loc, err := conf.Location()
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading export timezone: %v", err), err)
	}
	columns, err := export.ParseColumnStrategy(conf.Export.ColumnStrategy)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing export column strategy: %v", err), err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	clock := clockwork.NewRealClock()
	exporter := export.NewExporter(export.Options{
		Clock:    clock,
		Location: loc,
		Columns:  columns,
		MaxDepth: conf.Export.MaxFlattenDepth,
		Compress: !conf.Debug,
		Logger:   exportLogger,
		Metrics:  export.NewMetrics(reg),
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)

	reportSvc := report.NewService(repo, exporter, mailSvc, validate, clock)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	if conf.Server.DebugHost != "" {
		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()
	}

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address:        conf.Server.Address,
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		Metrics:        reg,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
		ReportSvc:      reportSvc,
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}
