package utils

import (
	"os"

	"github.com/redis/go-redis/v9"

	"tower-api/internal/logger"
)

// OpenRedisFromEnv：从环境变量打开 Redis 客户端（仅用于地理编码缓存）
// 约束：REDIS_ENABLE=false 时返回 nil，调用方按无缓存处理；REDIS_DB 解析失败回退到 0。
func OpenRedisFromEnv() *redis.Client {
	if os.Getenv("REDIS_ENABLE") == "false" {
		return nil
	}
	addr := envOr("REDIS_HOST", "127.0.0.1") + ":" + envOr("REDIS_PORT", "6379")
	db := envInt("REDIS_DB", 0)
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASS"), DB: db})
}
