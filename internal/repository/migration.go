// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/meshrank/meshrank/pkg/log"
)

// supportedVersion is the schema version this binary expects. Migrations
// are additive only (§6): a running binary never needs to migrate down.
const supportedVersion uint = 1

//go:embed migrations/*
var migrationFiles embed.FS

func checkDBVersion(backend string, db *sql.DB) {
	if backend != "sqlite3" {
		log.Fatalf("unsupported database driver: %s", backend)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		log.Fatal(err)
	}
	d, err := iofs.New(migrationFiles, "migrations/sqlite3")
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite3", driver)
	if err != nil {
		log.Fatal(err)
	}

	v, _, err := m.Version()
	if err != nil {
		if err == migrate.ErrNilVersion {
			log.Note("Fresh database, running migrations up to the supported version.")
			if err := m.Up(); err != nil && err != migrate.ErrNoChange {
				log.Fatal(err)
			}
			return
		}
		log.Fatal(err)
	}

	if v < supportedVersion {
		log.Fatalf("Database schema version %d is behind the version %d this binary expects. Run the migration tool first.", v, supportedVersion)
	}
	if v > supportedVersion {
		log.Fatalf("Database schema version %d is ahead of what this binary expects (%d).", v, supportedVersion)
	}
}

// MigrateDB runs all pending migrations against db using driver.
func MigrateDB(backend string, db string) {
	if backend != "sqlite3" {
		log.Fatalf("unsupported database driver: %s", backend)
	}

	d, err := iofs.New(migrationFiles, "migrations/sqlite3")
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, fmt.Sprintf("sqlite3://%s?_foreign_keys=on", db))
	if err != nil {
		log.Fatal(err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatal(err)
	}

	m.Close()
}
