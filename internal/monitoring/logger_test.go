package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op logger
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestComponentf(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})

	logf := Componentf("Engine")
	logf("compared %d frames", 12)

	if want := "[Engine] compared 12 frames"; got != want {
		t.Errorf("Componentf output = %q, want %q", got, want)
	}

	// late rebinding of Logf is honoured
	SetLogger(nil)
	got = ""
	logf("ignored")
	if got != "" {
		t.Errorf("expected no output after SetLogger(nil), got %q", got)
	}
}
