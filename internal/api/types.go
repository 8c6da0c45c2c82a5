package api

import "tower-api/internal/towers"

// locationReq：POST /geocode-location
type locationReq struct {
	Location string `json:"location"`
}

// towerReq：POST /filter-towers 与 /broad-area-search
// 约束：lat/lon 使用指针区分缺省与 0；country 为空时按坐标反查国家。
type towerReq struct {
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	Country string   `json:"country,omitempty"`
}

// towerResp：单条基站结果；坐标与覆盖半径保留存储精度（float32）
type towerResp struct {
	Type          towers.RadioType `json:"type"`
	Lat           float32          `json:"lat"`
	Lon           float32          `json:"lon"`
	Range         float32          `json:"range"`
	Color         towers.Color     `json:"color"`
	Distance      float64          `json:"distance"`
	SignalQuality float64          `json:"signal_quality"`
}

func toResp(m towers.CandidateMatch) towerResp {
	return towerResp{
		Type:          m.Tower.Radio,
		Lat:           m.Tower.Lat,
		Lon:           m.Tower.Lon,
		Range:         m.Tower.Range,
		Color:         m.Color,
		Distance:      m.DistanceMeters,
		SignalQuality: m.SignalQuality,
	}
}

type errorResp struct {
	Error     string   `json:"error"`
	Available []string `json:"available,omitempty"`
}
