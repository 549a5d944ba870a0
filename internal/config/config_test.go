package config

import (
	"testing"
	"time"
)

// setRequiredEnv は必須環境変数を設定する。
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/lendman")
	t.Setenv("TOKEN_SECRET", "test-secret")
	t.Setenv("BASE_URL", "https://api.example.com")
	t.Setenv("FRONTEND_BASE_URL", "https://app.example.com")
}

// 必須環境変数が揃っている場合に読み込みが成功することを検証
func TestLoad_Success(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DatabaseURL != "postgres://localhost:5432/lendman" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.TokenSecret != "test-secret" {
		t.Errorf("TokenSecret = %q", cfg.TokenSecret)
	}
}

// 必須環境変数の欠落がエラーになることを検証
func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing TOKEN_SECRET")
	}
}

// デフォルト値が適用されることを検証
func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TokenMaxAge != 7*24*time.Hour {
		t.Errorf("TokenMaxAge = %v, want 7d", cfg.TokenMaxAge)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.PaymentFeeCents != 5000 {
		t.Errorf("PaymentFeeCents = %d, want 5000", cfg.PaymentFeeCents)
	}
	if cfg.RateLimitGeneral != 120 || cfg.RateLimitApply != 10 {
		t.Errorf("rate limits = %d/%d, want 120/10", cfg.RateLimitGeneral, cfg.RateLimitApply)
	}
	if cfg.NotificationRetentionDays != 90 {
		t.Errorf("NotificationRetentionDays = %d, want 90", cfg.NotificationRetentionDays)
	}
	if cfg.CookieCrossSite {
		t.Error("CookieCrossSite default must be false")
	}
}

// CookieSecureがBASE_URLのスキームから導出されることを検証
func TestLoad_CookieSecureFromBaseURL(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure must be true for https BASE_URL")
	}

	t.Setenv("BASE_URL", "http://localhost:8080")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure must be false for http BASE_URL")
	}
}

// 環境変数によるデフォルトの上書きを検証
func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_MAX_AGE", "1h")
	t.Setenv("PAYMENT_FEE_CENTS", "10000")
	t.Setenv("COOKIE_CROSS_SITE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TokenMaxAge != time.Hour {
		t.Errorf("TokenMaxAge = %v, want 1h", cfg.TokenMaxAge)
	}
	if cfg.PaymentFeeCents != 10000 {
		t.Errorf("PaymentFeeCents = %d, want 10000", cfg.PaymentFeeCents)
	}
	if !cfg.CookieCrossSite {
		t.Error("CookieCrossSite = false, want true")
	}
}

// 不正な形式の値がデフォルトにフォールバックすることを検証
func TestLoad_InvalidValuesFallBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_MAX_AGE", "not-a-duration")
	t.Setenv("RATE_LIMIT_GENERAL", "abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TokenMaxAge != 7*24*time.Hour {
		t.Errorf("TokenMaxAge = %v, want default", cfg.TokenMaxAge)
	}
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want default", cfg.RateLimitGeneral)
	}
}
