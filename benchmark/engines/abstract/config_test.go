package engine

import (
	"errors"
	"testing"
	"time"
)

func TestGetString(t *testing.T) {
	config := map[string]string{"key": "value", "empty": ""}

	if got := GetString(config, "key", "default"); got != "value" {
		t.Errorf("GetString = %q, want %q", got, "value")
	}
	if got := GetString(config, "missing", "default"); got != "default" {
		t.Errorf("GetString missing = %q, want %q", got, "default")
	}
	if got := GetString(config, "empty", "default"); got != "default" {
		t.Errorf("GetString empty = %q, want %q", got, "default")
	}
}

func TestGetBool(t *testing.T) {
	config := map[string]string{"yes": "YES", "no": "0", "bad": "maybe"}

	if v, err := GetBool(config, "yes", false); err != nil || !v {
		t.Errorf("GetBool yes: got %v, %v", v, err)
	}
	if v, err := GetBool(config, "no", true); err != nil || v {
		t.Errorf("GetBool no: got %v, %v", v, err)
	}
	if v, err := GetBool(config, "missing", true); err != nil || !v {
		t.Errorf("GetBool missing: got %v, %v", v, err)
	}
	if _, err := GetBool(config, "bad", false); err == nil {
		t.Error("GetBool bad: expected error")
	}
}

func TestGetIntAndInt64(t *testing.T) {
	config := map[string]string{"num": "42", "big": "9223372036854775807", "bad": "abc"}

	if v, err := GetInt(config, "num", 0); err != nil || v != 42 {
		t.Errorf("GetInt = %d, %v", v, err)
	}
	if v, err := GetInt(config, "missing", 99); err != nil || v != 99 {
		t.Errorf("GetInt missing = %d, %v", v, err)
	}
	if _, err := GetInt(config, "bad", 0); err == nil {
		t.Error("GetInt bad: expected error")
	}
	if v, err := GetInt64(config, "big", 0); err != nil || v != 9223372036854775807 {
		t.Errorf("GetInt64 = %d, %v", v, err)
	}
}

func TestGetDuration(t *testing.T) {
	config := map[string]string{"dur": "5ms", "secs": "10", "bad": "abc"}

	if v, err := GetDuration(config, "dur", 0); err != nil || v != 5*time.Millisecond {
		t.Errorf("GetDuration dur = %v, %v", v, err)
	}
	if v, err := GetDuration(config, "secs", 0); err != nil || v != 10*time.Second {
		t.Errorf("GetDuration secs = %v, %v", v, err)
	}
	if _, err := GetDuration(config, "bad", 0); err == nil {
		t.Error("GetDuration bad: expected error")
	}
}

func TestMergeConfig(t *testing.T) {
	dst := map[string]string{"a": "1", "b": "2"}
	src := map[string]string{"b": "3", "c": "4"}
	result := MergeConfig(dst, src)

	if result["a"] != "1" || result["b"] != "3" || result["c"] != "4" {
		t.Errorf("MergeConfig = %v", result)
	}
	if dst["b"] != "2" {
		t.Error("MergeConfig modified dst")
	}
}

func TestConfigError(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{"backend only", ConfigError{Backend: "badger", Message: "failed"}, "badger: failed"},
		{"field", ConfigError{Backend: "badger", Field: "path", Message: "required"}, "badger: path: required"},
		{"value", ConfigError{Backend: "bolt", Field: "path", Value: "/x", Message: "invalid"}, `bolt: path="/x": invalid`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	cause := errors.New("underlying")
	if ce := NewConfigErrorWithCause("redis", "addr", "failed to connect", cause); !errors.Is(ce, cause) {
		t.Error("expected cause to be found via errors.Is")
	}
}
