package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/CreatorPay/app/models"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

// DSN builds the MySQL data source name from the DB_* environment variables.
func DSN() string {
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=UTC"
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		env.GetEnv("DB_USER", "creatorpay"),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", "creatorpay"),
	)
}

// SetupDatabase connects to MySQL, retrying while the server starts up, and
// migrates the ledger schema. It panics when no connection can be made.
func SetupDatabase() *gorm.DB {
	var err error
	level := logger.Warn
	if env.IsDev() {
		level = logger.Info
	}

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       DSN(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{Logger: logger.Default.LogMode(level)})
		if err == nil {
			if env.GetEnv("DB_AUTO_MIGRATE", "true") == "true" {
				if merr := DB.AutoMigrate(models.All()...); merr != nil {
					log.Errorf("[Database] auto migration failed: %v", merr)
				}
			}
			return DB
		}

		log.Warnf("[Database] Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Infof("[Database] Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	panic(err)
}

// GetDB returns the shared connection.
func GetDB() *gorm.DB {
	return DB
}
