// Package logging builds the process logger and bridges it into GORM.
package logging

import (
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// New returns a console logger at debug level in dev mode and a JSON
// production logger otherwise.
func New(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Gorm routes GORM's SQL log through l. Statements are only printed when
// debug is set; slow queries and errors are always reported.
func Gorm(l *zap.Logger, debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return gormlogger.New(zap.NewStdLog(l.Named("gorm")), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}
