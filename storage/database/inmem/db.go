package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo-reports/core/report"
)

type (
	DB struct {
		report *reportTable
	}

	reportTable struct {
		table map[string]*report.Report
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		report: &reportTable{table: make(map[string]*report.Report)},
	}
}
