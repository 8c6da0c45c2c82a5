// 包 logger：统一初始化与获取日志器，避免各模块重复配置；通过环境变量控制日志级别、输出格式与文件
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// 默认日志器：在进程级复用，避免多处初始化导致输出不一致
var defaultLogger atomic.Pointer[slog.Logger]

// Setup：初始化默认日志器
// 背景：集中化日志配置；生产环境（APP_ENV=production）默认仅输出 error，开发环境默认 info。
// 约束：始终输出到标准错误；LOG_FILE 非空时同时追加写入该文件，打开失败则仅输出到标准错误。
func Setup() *slog.Logger {
	lvl := slog.LevelInfo
	if strings.EqualFold(os.Getenv("APP_ENV"), "production") {
		lvl = slog.LevelError
	}
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	var w io.Writer = os.Stderr
	if p := os.Getenv("LOG_FILE"); p != "" {
		if f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			w = io.MultiWriter(os.Stderr, f)
		}
	}
	l := New(w, lvl, strings.ToLower(os.Getenv("LOG_FORMAT")))
	defaultLogger.Store(l)
	return l
}

// New：按格式构建日志器（json 或 text）
func New(w io.Writer, lvl slog.Level, format string) *slog.Logger {
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(h)
}

// L：获取默认日志器
// 背景：为业务代码提供快捷访问；若未初始化则回退到 Setup
func L() *slog.Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	return Setup()
}
