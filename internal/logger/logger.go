package logger

import (
	"vescollector/internal/config"
	"vescollector/internal/models"

	"github.com/SOLUCIONESSYCOM/scribe"
	"github.com/google/uuid"
)

// GetLoggerContext builds the scribe logger for a collector instance
func GetLoggerContext(descriptor models.LogDescriptor) (*scribe.Scribe, error) {

	logSettings := config.GetLogSettings()

	minLevel := logSettings.MinLevel
	if descriptor.Verbose {
		minLevel = "debug"
	}

	path := descriptor.Path
	if path == "" {
		path = logSettings.Path
	}

	loggerConfig := &scribe.ConfigLogger{
		FilePath:          path,
		MinLevel:          minLevel,
		RotationMaxSizeMB: logSettings.RotationMaxSizeMB,
		MaxBackups:        logSettings.MaxBackups,
		MaxAgeDay:         logSettings.MaxAgeDay,
		Compress:          logSettings.Compress,
		Console:           descriptor.Logger,
		BeutifyConsoleLog: logSettings.BeautifyConsoleLog,
		File:              descriptor.File,
	}

	globals := map[string]interface{}{
		"service_name":    descriptor.Name,
		"service_version": descriptor.Version,
		"service_id":      uuid.New().String(),
	}

	globalContext := scribe.NewGlobalLogContext(globals, []string{"service_name", "service_version", "service_id"})

	return scribe.New(loggerConfig, globalContext, []string{"service_name", "service_version", "service_id", "timestamp"})
}
