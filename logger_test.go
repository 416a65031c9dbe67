package imm

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestLoggerSilentByDefault(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	for _, l := range []*slog.Logger{orig, setAndGet(nil)} {
		if l == nil {
			t.Fatal("Logger() = nil")
		}
		for _, level := range []slog.Level{slog.LevelDebug, slog.LevelWarn, slog.LevelError} {
			if l.Enabled(context.Background(), level) {
				t.Errorf("silent logger enabled at %v", level)
			}
		}
	}
}

func setAndGet(l *slog.Logger) *slog.Logger {
	SetLogger(l)
	return Logger()
}

func TestLoggerReceivesRendererDebug(t *testing.T) {
	logs := captureLogs(t)
	newTestRenderer(t)

	if got := strings.Count(logs.String(), "pipeline created"); got != 4 {
		t.Errorf("pipeline creation records = %d, want 4 built-ins:\n%s", got, logs)
	}
	if strings.Contains(logs.String(), "level=WARN") {
		t.Errorf("unexpected warning while creating a renderer:\n%s", logs)
	}
}

func TestLoggerConcurrentSwap(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				SetLogger(slog.Default())
				SetLogger(nil)
				return
			}
			Logger().Debug("imm: concurrent", "i", i)
		}()
	}
	wg.Wait()
}

func BenchmarkLoggerSilentWarn(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		Logger().Warn("imm: draw call failed", "index", 1)
	}
}
