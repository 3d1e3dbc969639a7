package health

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/updateme/engine/internal/core/ports"
	infraDB "github.com/updateme/engine/internal/infrastructure/db"
)

// dbHealthChecker pings a postgres or sqlite database.
type dbHealthChecker struct {
	name string
	db   *infraDB.Database
}

func (d *dbHealthChecker) Name() string                    { return d.name }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.Cmdable }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// NewDBHealthChecker reports the database under "database".
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker {
	return &dbHealthChecker{name: "database", db: db}
}

// NewCacheDBHealthChecker reports a dedicated cache database, named after its driver.
func NewCacheDBHealthChecker(db *infraDB.Database) ports.HealthChecker {
	return &dbHealthChecker{name: "cache_" + db.Driver, db: db}
}

func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}
