package logging

import "testing"

type fakeLogger struct {
	level  Level
	debugs []string
	infos  []string
	warns  []string
	errors []string
}

func (f *fakeLogger) Level() Level     { return f.level }
func (f *fakeLogger) SetLevel(l Level) { f.level = l }

func (f *fakeLogger) Debugf(format string, args ...interface{}) { f.debugs = append(f.debugs, format) }
func (f *fakeLogger) Infof(format string, args ...interface{})  { f.infos = append(f.infos, format) }
func (f *fakeLogger) Warnf(format string, args ...interface{})  { f.warns = append(f.warns, format) }
func (f *fakeLogger) Errorf(format string, args ...interface{}) { f.errors = append(f.errors, format) }

func withLogger(t *testing.T, l Logger) *fakeLogger {
	t.Helper()
	prev := logger
	SetLogger(l)
	t.Cleanup(func() { SetLogger(prev) })
	f, _ := l.(*fakeLogger)
	return f
}

func TestEmitGatedByLevel(t *testing.T) {
	f := withLogger(t, &fakeLogger{level: WARN})

	Debugf("d")
	Infof("i")
	Warnf("w")
	Errorf("e")

	if len(f.debugs) != 0 || len(f.infos) != 0 {
		t.Fatalf("expected DEBUG and INFO suppressed at WARN level, got debugs=%v infos=%v", f.debugs, f.infos)
	}
	if len(f.warns) != 1 || len(f.errors) != 1 {
		t.Fatalf("expected WARN and ERROR to pass through, got warns=%v errors=%v", f.warns, f.errors)
	}
}

func TestEmitAtDebugLevelPassesEverything(t *testing.T) {
	f := withLogger(t, &fakeLogger{level: DEBUG})

	Debugf("d")
	Infof("i")
	Warnf("w")
	Errorf("e")

	if len(f.debugs) != 1 || len(f.infos) != 1 || len(f.warns) != 1 || len(f.errors) != 1 {
		t.Fatalf("expected every level to pass through at DEBUG, got %+v", f)
	}
}

func TestEmitWithNilLoggerIsNoop(t *testing.T) {
	withLogger(t, &fakeLogger{level: DEBUG})
	SetLogger(nil)
	// Must not panic.
	Debugf("d")
	Infof("i")
	Warnf("w")
	Errorf("e")
}

func TestLevelString(t *testing.T) {
	cases := map[Level]string{
		NONE: "NONE", ERROR: "ERROR", WARN: "WARN", INFO: "INFO", DEBUG: "DEBUG",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", level, got, want)
		}
	}
	if got := Level(99).String(); got != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN for out-of-range level, got %q", got)
	}
}

func TestDefaultLoggerSetLevel(t *testing.T) {
	d := newDefaultLogger()
	if d.Level() != WARN {
		t.Fatalf("expected default level WARN, got %v", d.Level())
	}
	d.SetLevel(DEBUG)
	if d.Level() != DEBUG {
		t.Fatalf("expected level updated to DEBUG, got %v", d.Level())
	}
}
