package imm

import (
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	SetLogger(nil)
}

// SetLogger routes the log output of imm and its backends to l. Pass nil
// to silence it again, which is also the default. It may be called while
// other goroutines are logging.
//
// Debug records cover buffer growth and shader or pipeline creation. Warn
// records cover clamped geometry, bad uniforms and draw calls a backend
// rejected during Flush.
//
//	imm.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	logger.Store(l)
}

// Logger returns the logger set by SetLogger. Backend packages log through
// it so one call configures the whole module.
func Logger() *slog.Logger {
	return logger.Load()
}
