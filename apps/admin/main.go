package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	emailsvc "github.com/trezcool/mahudhurio/services/email"
	logsvc "github.com/trezcool/mahudhurio/services/logger"
	"github.com/trezcool/mahudhurio/storage/database"
	boiledrepos "github.com/trezcool/mahudhurio/storage/database/sqlboiler"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.New("ADMIN : ", conf)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.PingContext(ctx)
	cancel()
	if err != nil {
		logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}

	// set up services
	core.ParseEmailTemplates(conf, logger)
	mailSvc := emailsvc.NewService(conf, logger)
	svc := attendance.NewService(boiledrepos.NewAttendanceRepository(db), nil, nil, mailSvc, logger, conf)

	// start CLI
	cli := commandLine{
		db:   db,
		svc:  svc,
		conf: conf,
		out:  os.Stdout,
	}
	err = cli.run(os.Args)
	if w, ok := mailSvc.(emailsvc.Waiter); ok {
		w.Wait()
	}
	_ = db.Close()

	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("\nerror: %s\n", err), err)
		}
		os.Exit(1)
	}
}
