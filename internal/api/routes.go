// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tower-api/internal/dataset"
	"tower-api/internal/geocode"
	"tower-api/internal/logger"
	"tower-api/internal/query"
	"tower-api/internal/towers"
)

// Locator：访客 IP → 近似坐标与国家码
type Locator interface {
	Locate(ip string) (towers.Point, string, error)
}

// 请求体上限；坐标请求仅几十字节
const maxBody = 1 << 16

type handlers struct {
	svc *query.Service
	gc  geocode.Geocoder
	loc Locator
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
// 约束：gc 与 loc 可为 nil；gc 为 nil 时 /geocode-location 返回 502，loc 为 nil 时缺省坐标直接 400。
func BuildRoutes(svc *query.Service, gc geocode.Geocoder, loc Locator) *http.ServeMux {
	h := &handlers{svc: svc, gc: gc, loc: loc}
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /geocode-location", h.geocodeLocation)
	apiMux.HandleFunc("POST /filter-towers", h.towers(towers.ModeClosestByType))
	apiMux.HandleFunc("POST /broad-area-search", h.towers(towers.ModeAllInRange))
	apiMux.HandleFunc("GET /regions", h.regions)
	apiMux.HandleFunc("GET /health", h.health)
	return apiMux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	return dec.Decode(v)
}

func (h *handlers) geocodeLocation(w http.ResponseWriter, r *http.Request) {
	var req locationReq
	if err := decode(w, r, &req); err != nil || strings.TrimSpace(req.Location) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "Location name is required"})
		return
	}
	if h.gc == nil {
		writeJSON(w, http.StatusBadGateway, errorResp{Error: "Geocoding is not configured"})
		return
	}
	p, err := h.gc.Geocode(r.Context(), req.Location)
	switch {
	case errors.Is(err, geocode.ErrNoResult):
		writeJSON(w, http.StatusNotFound, errorResp{Error: "Location not found"})
	case err != nil:
		logger.L().Error("geocode_failed", "err", err)
		writeJSON(w, http.StatusBadGateway, errorResp{Error: "Geocoding service unavailable"})
	default:
		writeJSON(w, http.StatusOK, map[string]float64{"lat": p.Lat, "lon": p.Lon})
	}
}

// towers：/filter-towers 与 /broad-area-search 共用处理流程，仅模式不同
func (h *handlers) towers(mode towers.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req towerReq
		if err := decode(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp{Error: "Invalid JSON body"})
			return
		}
		l := logger.L()
		country := strings.TrimSpace(req.Country)
		var p towers.Point
		switch {
		case req.Lat != nil && req.Lon != nil:
			p = towers.Point{Lat: *req.Lat, Lon: *req.Lon}
		case req.Lat == nil && req.Lon == nil && h.loc != nil:
			ip := clientIP(r)
			gp, a3, err := h.loc.Locate(ip)
			if err != nil {
				l.Debug("geoip_fallback_miss", "err", err)
				writeJSON(w, http.StatusBadRequest, errorResp{Error: "Latitude and longitude are required"})
				return
			}
			p = gp
			if country == "" {
				country = a3
			}
		default:
			writeJSON(w, http.StatusBadRequest, errorResp{Error: "Latitude and longitude are required"})
			return
		}
		var (
			res *towers.Result
			err error
		)
		if country != "" {
			res, err = h.svc.Query(r.Context(), country, p, mode)
		} else {
			country, res, err = h.svc.QueryAt(r.Context(), p, mode)
		}
		if err != nil {
			writeQueryError(w, country, err)
			return
		}
		matches := res.Matches()
		out := make([]towerResp, 0, len(matches))
		for _, m := range matches {
			out = append(out, toResp(m))
		}
		l.Info("towers_query_ok", "mode", mode.String(), "region", country, "results", len(out))
		writeJSON(w, http.StatusOK, out)
	}
}

// writeQueryError：查询错误 → HTTP 状态
func writeQueryError(w http.ResponseWriter, region string, err error) {
	var nf *dataset.NotFoundError
	switch {
	case errors.Is(err, query.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorResp{
			Error:     "No cell tower data for country code '" + nf.Region + "'",
			Available: nf.Available,
		})
	case errors.Is(err, geocode.ErrUpstream):
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "Could not determine country from the provided location."})
	default:
		logger.L().Error("towers_query_failed", "region", region, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: "Failed to load cell tower data for country code '" + region + "'."})
	}
}

func (h *handlers) regions(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Store().Available(r.Context())
	if err != nil {
		logger.L().Error("regions_list_failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: "Failed to list regions"})
		return
	}
	if list == nil {
		list = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": list})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "cached_regions": h.svc.Store().Cached()})
}
