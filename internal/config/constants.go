package config

import "time"

// Postgres pool
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
	DBPingTimeout     = 5 * time.Second
)

// Redis pool. Rate limit checks sit on the request path, so I/O timeouts
// stay short; a timeout denies the request.
const (
	RedisPoolSize    = 10
	RedisDialTimeout = 2 * time.Second
	RedisIOTimeout   = 500 * time.Millisecond
)

// HTTP server
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 30 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// CleanupJobInterval paces admin session cleanup and the optional expired
// code sweep.
const CleanupJobInterval = 5 * time.Minute

const LoginLimitWindow = time.Minute
