package config

import "testing"

func TestGetEnvTrimsAndFallsBack(t *testing.T) {
	t.Setenv("TEST_CONFIG_STR", "  redis.internal  ")
	if got := getEnv("TEST_CONFIG_STR", "fb"); got != "redis.internal" {
		t.Errorf("getEnv = %q, want trimmed value", got)
	}

	t.Setenv("TEST_CONFIG_STR", "   ")
	if got := getEnv("TEST_CONFIG_STR", "fb"); got != "fb" {
		t.Errorf("getEnv on blank = %q, want fallback", got)
	}

	if got := getEnv("TEST_CONFIG_STR_MISSING", "fb"); got != "fb" {
		t.Errorf("getEnv on missing = %q, want fallback", got)
	}
}

func TestGetEnvIntRejectsNonPositive(t *testing.T) {
	t.Setenv("TEST_CONFIG_INT", "42")
	if got := getEnvInt("TEST_CONFIG_INT", 7); got != 42 {
		t.Errorf("getEnvInt = %d, want 42", got)
	}

	t.Setenv("TEST_CONFIG_INT", "-3")
	if got := getEnvInt("TEST_CONFIG_INT", 7); got != 7 {
		t.Errorf("getEnvInt on negative = %d, want fallback", got)
	}

	t.Setenv("TEST_CONFIG_INT", "notanumber")
	if got := getEnvInt("TEST_CONFIG_INT", 7); got != 7 {
		t.Errorf("getEnvInt on garbage = %d, want fallback", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("TEST_CONFIG_BOOL", "false")
	if getEnvBool("TEST_CONFIG_BOOL", true) {
		t.Error("getEnvBool should parse explicit false")
	}
	if !getEnvBool("TEST_CONFIG_BOOL_MISSING", true) {
		t.Error("getEnvBool on missing should use fallback")
	}
}
