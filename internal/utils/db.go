// 包 utils：PostgreSQL / Redis 连接工具，统一环境变量读取与连接池参数
package utils

import (
	"database/sql"
	"os"
	"strconv"

	_ "github.com/lib/pq"

	"tower-api/internal/logger"
)

// BuildPostgresDSNFromEnv：按 PG_* 环境变量拼接 DSN，未设置项使用本地默认值
func BuildPostgresDSNFromEnv() string {
	dsn := "postgres://" + envOr("PG_USER", "postgres")
	if pass := os.Getenv("PG_PASSWORD"); pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + envOr("PG_HOST", "localhost") + ":" + envOr("PG_PORT", "5432") + "/" + envOr("PG_DB", "towers")
	dsn += "?sslmode=" + envOr("PG_SSLMODE", "disable")
	return dsn
}

// OpenPostgresFromEnv：打开连接池；sql.Open 不建立连接，连通性由调用方 Ping 确认
// 约束：基站表只在首次加载区域时整表读取，默认连接数较小。
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(envInt("PG_MAX_OPEN_CONNS", 10))
	db.SetMaxIdleConns(envInt("PG_MAX_IDLE_CONNS", 5))
	logger.L().Debug("pg_env", "host", envOr("PG_HOST", "localhost"), "db", envOr("PG_DB", "towers"))
	return db, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt：解析失败或为负时回退默认值
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, e := strconv.Atoi(v); e == nil && n >= 0 {
			return n
		}
	}
	return def
}
