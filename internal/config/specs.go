// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package config

import (
	"time"
)

// EnvSpec is the basic environment configuration setup needed for the app to start
type EnvSpec struct {
	OtelGRPCEndpoint string `envconfig:"otel_grpc_endpoint"`
	OtelHTTPEndpoint string `envconfig:"otel_http_endpoint"`
	TracingEnabled   bool   `envconfig:"tracing_enabled" default:"true"`

	LogLevel string `envconfig:"log_level" default:"error"`
	Debug    bool   `envconfig:"debug" default:"false"`

	Port int `envconfig:"port" default:"8080"`

	CORSAllowedOrigins []string `envconfig:"cors_allowed_origins" default:"*"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Only enable it when every request passes through a proxy
	// that overwrites them.
	TrustProxyHeaders bool `envconfig:"trust_proxy_headers" default:"false"`

	DSN string `envconfig:"DSN" required:"true"`

	DBMaxConns        int32         `envconfig:"db_max_conns" default:"25"`
	DBMinConns        int32         `envconfig:"db_min_conns" default:"2"`
	DBMaxConnLifetime time.Duration `envconfig:"db_max_conn_lifetime" default:"1h"`
	DBMaxConnIdleTime time.Duration `envconfig:"db_max_conn_idle_time" default:"30m"`

	JWTIssuer        string        `envconfig:"jwt_issuer" default:"erp-auth"`
	JWTAccessSecret  string        `envconfig:"jwt_access_secret" required:"true"`
	JWTRefreshSecret string        `envconfig:"jwt_refresh_secret" required:"true"`
	JWTResetSecret   string        `envconfig:"jwt_reset_secret" required:"true"`
	AccessTokenTTL   time.Duration `envconfig:"access_token_ttl" default:"15m"`
	RefreshTokenTTL  time.Duration `envconfig:"refresh_token_ttl" default:"168h"`
	PasswordResetTTL time.Duration `envconfig:"password_reset_ttl" default:"1h"`
	BcryptCost       int           `envconfig:"bcrypt_cost" default:"12"`

	FinancialRoles []string `envconfig:"financial_roles" default:"Admin,CEO,CFO,Accountant,Finance Manager"`
	ExecutiveRoles []string `envconfig:"executive_roles" default:"Admin,CEO,COO,CFO,CTO"`
	RoleAdminRoles []string `envconfig:"role_admin_roles" default:"Admin,CEO"`

	RateLimitEnabled  bool          `envconfig:"rate_limit_enabled" default:"true"`
	RateLimitRequests int           `envconfig:"rate_limit_requests" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"rate_limit_window" default:"1m"`
	RedisAddress      string        `envconfig:"redis_address"`
	RedisPassword     string        `envconfig:"redis_password"`
	RedisDB           int           `envconfig:"redis_db" default:"0"`

	AuditBufferSize int `envconfig:"audit_buffer_size" default:"1024"`
}
