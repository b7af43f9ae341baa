package config

import (
	"log"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenSQLite opens a SQLite database with the same plugins as the MySQL
// connection. dsn may be a file path or a "file:...?mode=memory" URI.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(dsn), initConfig())
	if err != nil {
		return nil, err
	}
	if err := conn.Use(NewOwnerGuardPlugin()); err != nil {
		return nil, err
	}
	return conn, nil
}

// sqliteRequested is true when DB_DRIVER=sqlite, for local runs without MySQL.
func sqliteRequested() bool {
	return os.Getenv("DB_DRIVER") == "sqlite"
}

func connectSQLite() {
	dsn := os.Getenv("DB_NAME")
	if dsn == "" {
		dsn = "costbook.db"
	}
	conn, err := OpenSQLite(dsn)
	if err != nil {
		log.Fatalf("open sqlite %s: %v", dsn, err)
	}
	SetDB(conn)
	log.Printf("connected to sqlite database %s", dsn)
}
