// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"tower-api/internal/api"
	"tower-api/internal/dataset"
	"tower-api/internal/geocode"
	"tower-api/internal/logger"
	"tower-api/internal/metrics"
	"tower-api/internal/middleware"
	"tower-api/internal/migrate"
	"tower-api/internal/query"
	"tower-api/internal/utils"
	"tower-api/internal/version"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok", "commit", version.Commit)
	apiBase := os.Getenv("API_BASE")
	if apiBase == "" {
		apiBase = "/api"
	}
	l.Debug("config_api_base", "base", apiBase)

	src, closeSrc, err := openSource()
	if err != nil {
		l.Error("tower_source_error", "err", err)
		os.Exit(1)
	}
	defer closeSrc()
	cacheSize := 256
	if s := os.Getenv("DATASET_CACHE_SIZE"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			cacheSize = n
		}
	}
	st, err := dataset.NewStore(src, cacheSize)
	if err != nil {
		l.Error("dataset_store_error", "err", err)
		os.Exit(1)
	}
	l.Info("dataset_store_ready", "source", src.Name(), "cache_size", cacheSize)

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
		if err := rc.Ping(context.Background()).Err(); err != nil {
			// 缓存不可用时仍可直连地理编码服务
			l.Error("redis_ping_error", "err", err)
			rc = nil
		} else {
			l.Info("redis_ping_ok")
		}
	}
	ttl := 24 * time.Hour
	if s := os.Getenv("GEOCODE_CACHE_TTL_S"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			ttl = time.Duration(n) * time.Second
		}
	}
	gc := geocode.NewCached(geocode.NewNominatimFromEnv(), rc, ttl)

	// 背景：GeoLite2 数据库可选；缺失时请求必须携带坐标
	var loc api.Locator
	if p := os.Getenv("GEOIP_PATH"); p != "" {
		if ipl, err := geocode.OpenIPLocator(p); err == nil {
			defer ipl.Close()
			loc = ipl
			l.Info("geoip_ready", "path", p)
		} else {
			l.Error("geoip_open_error", "path", p, "err", err)
		}
	}

	svc := query.NewService(st, gc)
	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(svc, gc, loc)
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))
	mux.Handle(apiBase+"/metrics", metrics.Handler())

	ui := os.Getenv("UI_DIST")
	if ui == "" {
		ui = filepath.Join("ui", "dist")
	}
	if fi, err := os.Stat(ui); err == nil && fi.IsDir() {
		mux.Handle("/", http.FileServer(http.Dir(ui)))
		// NOTE: 向前端暴露 API 基础路径，避免硬编码
		mux.HandleFunc("/config.js", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("content-type", "application/javascript; charset=utf-8")
			w.Header().Set("cache-control", "no-store")
			_, _ = w.Write([]byte("window.__API_BASE__='" + apiBase + "'\n"))
			_, _ = w.Write([]byte("window.__COMMIT_SHA__='" + version.Commit + "'\n"))
		})
		l.Debug("config_ui_dir", "dir", ui)
	} else {
		l.Info("ui_disabled", "dir", ui)
	}

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	l.Info("listening", "addr", addr)
	if err := s.ListenAndServe(); err != nil {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
}

// openSource：按 TOWER_SOURCE 选择区域表数据源
func openSource() (dataset.Source, func(), error) {
	l := logger.L()
	switch os.Getenv("TOWER_SOURCE") {
	case "postgres":
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			return nil, nil, err
		}
		if err := db.Ping(); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := migrate.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return dataset.AttachPG(db), func() { db.Close() }, nil
	default:
		dir := os.Getenv("TOWERS_DIR")
		if dir == "" {
			dir = filepath.Join("databases", "towers")
		}
		l.Debug("config_towers_dir", "dir", dir)
		return dataset.NewFileSource(dir), func() {}, nil
	}
}
