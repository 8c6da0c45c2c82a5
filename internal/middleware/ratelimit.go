package middleware

import (
	"net/http"
	"os"
	"strconv"

	"golang.org/x/time/rate"

	"tower-api/internal/logger"
)

// 文档注释：令牌桶限流中间件（每秒）
// 背景：基站查询在冷区域时需要整表加载，峰值流量下入口限速避免内存与上游地理编码被打满。
// 约束：不排队，超限直接返回 429；突发容量等于 QPS。
func Wrap(next http.Handler) http.Handler {
	if os.Getenv("RATE_LIMIT_ENABLED") != "true" {
		return next
	}
	qps := 200
	if s := os.Getenv("RATE_LIMIT_QPS"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			qps = n
		}
	}
	return Limit(next, rate.NewLimiter(rate.Limit(qps), qps))
}

// Limit 使用给定限流器包装 handler
func Limit(next http.Handler, lim *rate.Limiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !lim.Allow() {
			logger.L().Debug("rate_limited", "path", r.URL.Path)
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
