// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/meshrank/meshrank/pkg/log"
)

var (
	dbConnOnce     sync.Once
	dbConnInstance *DBConnection
)

// DBConnection wraps the single shared *sqlx.DB. sqlite does not
// multithread its writer; a single open connection serializes writes the
// way §4.6/§5 require without an explicit mutex.
type DBConnection struct {
	DB     *sqlx.DB
	Driver string
}

// Connect opens (once) the database at db using driver, and blocks startup
// (configuration-fatal, §7) if the schema is not at the version this
// binary expects.
func Connect(driver string, db string) {
	var err error
	var dbHandle *sqlx.DB

	dbConnOnce.Do(func() {
		switch driver {
		case "sqlite3":
			sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &Hooks{}))
			dbHandle, err = sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL", db))
			if err != nil {
				log.Fatal(err)
			}
			dbHandle.SetMaxOpenConns(1)
		default:
			log.Fatalf("unsupported database driver: %s", driver)
		}

		dbConnInstance = &DBConnection{DB: dbHandle, Driver: driver}
		checkDBVersion(driver, dbHandle.DB)
	})
}

// GetConnection returns the process-wide connection. Panics via log.Fatal
// if called before Connect.
func GetConnection() *DBConnection {
	if dbConnInstance == nil {
		log.Fatalf("database connection not initialized")
	}
	return dbConnInstance
}
