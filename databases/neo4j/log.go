package neo4j

import (
	"fmt"

	"go.uber.org/zap"
)

// driverLogger forwards driver log output to zap.
type driverLogger struct {
	logger *zap.Logger
}

func newDriverLogger(logger *zap.Logger) *driverLogger {
	return &driverLogger{logger: logger.Named("driver")}
}

func (l *driverLogger) Error(name string, id string, err error) {
	l.logger.Error(name, zap.String("id", id), zap.Error(err))
}

func (l *driverLogger) Warnf(name string, id string, msg string, args ...any) {
	l.logger.Warn(fmt.Sprintf(msg, args...), zap.String("component", name), zap.String("id", id))
}

func (l *driverLogger) Infof(name string, id string, msg string, args ...any) {
	l.logger.Info(fmt.Sprintf(msg, args...), zap.String("component", name), zap.String("id", id))
}

func (l *driverLogger) Debugf(name string, id string, msg string, args ...any) {
	if ce := l.logger.Check(zap.DebugLevel, name); ce != nil {
		ce.Write(zap.String("detail", fmt.Sprintf(msg, args...)), zap.String("id", id))
	}
}
