package secret

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func testSource(env map[string]string, terminal bool, input string, readErr error) *Source {
	s := NewSource("CHRONICLES_AUTH_SECRET", "auth secret")
	s.lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	s.isTerminal = func() bool { return terminal }
	s.read = func() ([]byte, error) { return []byte(input), readErr }
	s.prompt = io.Discard
	return s
}

func TestSourcePrefersEnvironment(t *testing.T) {
	s := testSource(map[string]string{"CHRONICLES_AUTH_SECRET": "from-env"}, true, "typed", nil)
	got, err := s.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "from-env" {
		t.Fatalf("unexpected secret %q", got)
	}
}

func TestSourceRejectsEmptyEnvironment(t *testing.T) {
	s := testSource(map[string]string{"CHRONICLES_AUTH_SECRET": "  "}, true, "typed", nil)
	if _, err := s.Get(); err == nil || !strings.Contains(err.Error(), "set but empty") {
		t.Fatalf("expected empty env error, got %v", err)
	}
}

func TestSourcePromptsOnTerminal(t *testing.T) {
	s := testSource(nil, true, "typed", nil)
	got, err := s.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "typed" {
		t.Fatalf("unexpected secret %q", got)
	}
	s.read = func() ([]byte, error) { return []byte("other"), nil }
	if again, _ := s.Get(); again != "typed" {
		t.Fatalf("value not cached: %q", again)
	}
}

func TestSourceFailures(t *testing.T) {
	if _, err := testSource(nil, false, "", nil).Get(); err == nil || !strings.Contains(err.Error(), "CHRONICLES_AUTH_SECRET") {
		t.Fatalf("expected missing terminal error, got %v", err)
	}
	if _, err := testSource(nil, true, " ", nil).Get(); err == nil || !strings.Contains(err.Error(), "cannot be empty") {
		t.Fatalf("expected empty input error, got %v", err)
	}
	boom := errors.New("boom")
	if _, err := testSource(nil, true, "", boom).Get(); !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
}
