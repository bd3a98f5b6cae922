package db

import (
	"log"
	"os"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The audit database is optional. When DATABASE_URL is unset the package
// stays nil and every recording call is a no-op.
var (
	conn     *gorm.DB
	initOnce sync.Once
)

// Init opens the audit database from DATABASE_URL and migrates the schema.
func Init() {
	initOnce.Do(func() {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			log.Println("[db] DATABASE_URL not set, tool call auditing disabled")
			return
		}
		database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			log.Printf("[db] open failed, auditing disabled: %v", err)
			return
		}
		if err := database.AutoMigrate(&ToolCallLog{}); err != nil {
			log.Printf("[db] migrate failed, auditing disabled: %v", err)
			return
		}
		conn = database
		log.Println("[db] tool call auditing enabled")
	})
}

// DB exposes the connection for repository functions. Nil when disabled.
func DB() *gorm.DB { return conn }
