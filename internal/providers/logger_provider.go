package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"lrd/internal/structures"
)

type TypeEnum int

const (
	TypeApp TypeEnum = iota
	TypeGet
	TypePost
	TypeTelemetry
	TypeClaim
)

// GetLogTypeByRequestType maps an HTTP method onto a log stream.
func GetLogTypeByRequestType(method string) TypeEnum {
	if method == "POST" {
		return TypePost
	}
	return TypeGet
}

type Logger interface {
	Errorf(t TypeEnum, format string, args ...interface{})
	Warnf(t TypeEnum, format string, args ...interface{})
	Infof(t TypeEnum, format string, args ...interface{})
	Debugf(t TypeEnum, format string, args ...interface{})
	Fatalf(t TypeEnum, format string, args ...interface{})
	Close()
}

// LogProvider writes zerolog JSON lines into per-stream files: app.log for
// daemon lifecycle, access.log for HTTP traffic, engine.log for telemetry
// and claim activity.
type LogProvider struct {
	app    zerolog.Logger
	access zerolog.Logger
	engine zerolog.Logger
	files  []*os.File
}

func NewLogProvider(conf *structures.Config) (Logger, error) {
	level, err := zerolog.ParseLevel(conf.Logger.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", conf.Logger.Level, err)
	}

	mode := os.FileMode(conf.Logger.Mode)
	lp := &LogProvider{}
	open := func(name string) (zerolog.Logger, error) {
		f, err := os.OpenFile(filepath.Join(conf.Logger.Dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, mode)
		if err != nil {
			lp.Close()
			return zerolog.Logger{}, err
		}
		lp.files = append(lp.files, f)
		return zerolog.New(f).Level(level).With().Timestamp().Logger(), nil
	}

	if lp.app, err = open("app.log"); err != nil {
		return nil, err
	}
	if lp.access, err = open("access.log"); err != nil {
		return nil, err
	}
	if lp.engine, err = open("engine.log"); err != nil {
		return nil, err
	}
	return lp, nil
}

func (l *LogProvider) loggerFor(t TypeEnum) *zerolog.Logger {
	switch t {
	case TypeGet, TypePost:
		return &l.access
	case TypeTelemetry, TypeClaim:
		return &l.engine
	default:
		return &l.app
	}
}

func (l *LogProvider) Errorf(t TypeEnum, format string, args ...interface{}) {
	l.loggerFor(t).Error().Msgf(format, args...)
}

func (l *LogProvider) Warnf(t TypeEnum, format string, args ...interface{}) {
	l.loggerFor(t).Warn().Msgf(format, args...)
}

func (l *LogProvider) Infof(t TypeEnum, format string, args ...interface{}) {
	l.loggerFor(t).Info().Msgf(format, args...)
}

func (l *LogProvider) Debugf(t TypeEnum, format string, args ...interface{}) {
	l.loggerFor(t).Debug().Msgf(format, args...)
}

func (l *LogProvider) Fatalf(t TypeEnum, format string, args ...interface{}) {
	l.loggerFor(t).Fatal().Msgf(format, args...)
}

func (l *LogProvider) Close() {
	for _, f := range l.files {
		_ = f.Close()
	}
	l.files = nil
}
