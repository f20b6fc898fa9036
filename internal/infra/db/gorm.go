package db

import (
	"time"

	"fooddelivery/internal/telemetry"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
// 下の *sql.DB は otelsql 経由（pgxドライバ）。
func Connect(dsn string) (*gorm.DB, error) {
	sqlDB, err := telemetry.OpenDB(dsn)
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return gdb, nil
}
