package reconciler

import (
	"fmt"
	"log/slog"
)

// opLogger is a per-reconciler-operation logging helper, the same role the
// teacher's deployerPipelineLogger plays for its deploy pipeline: every
// step of a JoinCargo/StartCluster/etc. call logs through one of these so
// log lines carry the operation's identifying keys without the caller
// repeating them at every call site.
type opLogger struct {
	logger *slog.Logger
	op     string
	attrs  []any
}

func newOpLogger(logger *slog.Logger, op string, attrs ...any) *opLogger {
	return &opLogger{logger: logger, op: op, attrs: attrs}
}

func (l *opLogger) info(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...), append([]any{"op", l.op}, l.attrs...)...)
}

// warn logs a best-effort step's failure without propagating it -- used
// for the DNS restart and proxy reload steps §4.4 and §5 both call out as
// "logged, not fatal".
func (l *opLogger) warn(format string, err error, args ...any) {
	attrs := append([]any{"op", l.op, "error", err}, l.attrs...)
	l.logger.Warn(fmt.Sprintf(format, args...), attrs...)
}
