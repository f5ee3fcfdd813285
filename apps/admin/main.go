package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/trezcool/masomo-reports/core"
	"github.com/trezcool/masomo-reports/storage/database"
)

func main() {
	logger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		logger.Fatalf("loading config: %+v", err)
	}

	// start CLI
	cli := commandLine{
		conf: conf,
		out:  os.Stdout,
		openDB: func() (*sql.DB, error) {
			db, err := database.Open(conf)
			if err != nil {
				return nil, err
			}
			return db.DB, nil
		},
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
