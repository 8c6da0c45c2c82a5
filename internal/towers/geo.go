package towers

import "math"

const (
	// EarthRadiusKm 与历史数据口径保持一致（非 6371）
	EarthRadiusKm = 6367.0
	// DefaultMaxDistanceKm 预筛包围盒半径
	DefaultMaxDistanceKm = 50.0
	kmPerDegree          = 111.0
)

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// DistanceMeters：用户点到基站的球面距离（Haversine），返回米
// 约束：a 截断到 [0,1]，重合点返回 0，对跖点返回 π·R 而不是 NaN。
func DistanceMeters(p Point, lat, lon float64) float64 {
	lat1 := radians(p.Lat)
	lat2 := radians(lat)
	dLat := lat2 - lat1
	dLon := radians(lon) - radians(p.Lon)
	sLat := math.Sin(dLat / 2)
	sLon := math.Sin(dLon / 2)
	a := sLat*sLat + math.Cos(lat1)*math.Cos(lat2)*sLon*sLon
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}
	c := 2 * math.Asin(math.Sqrt(a))
	return EarthRadiusKm * c * 1000
}

// BBox：预筛使用的经纬度包围带
// 约束：AllLon 为 true 时经度不参与过滤（高纬度下经度带覆盖全球）。
type BBox struct {
	MinLat, MaxLat float64
	CenterLon      float64
	LonDelta       float64
	AllLon         bool
}

// BoundsAround：按 111km/度 近似计算包围带
func BoundsAround(p Point, maxKm float64) BBox {
	latDelta := maxKm / kmPerDegree
	b := BBox{MinLat: p.Lat - latDelta, MaxLat: p.Lat + latDelta, CenterLon: p.Lon}
	cos := math.Cos(radians(p.Lat))
	if cos <= 0 {
		b.AllLon = true
		return b
	}
	b.LonDelta = maxKm / (kmPerDegree * cos)
	if b.LonDelta >= 180 || math.IsInf(b.LonDelta, 0) || math.IsNaN(b.LonDelta) {
		b.AllLon = true
	}
	return b
}

// Contains 判断坐标是否落在包围带内；经度差按 360 取模以跨越日期变更线
func (b BBox) Contains(lat, lon float64) bool {
	if !(lat >= b.MinLat && lat <= b.MaxLat) {
		return false
	}
	if b.AllLon {
		return !math.IsNaN(lon)
	}
	d := math.Abs(math.Mod(lon-b.CenterLon, 360))
	if d > 180 {
		d = 360 - d
	}
	return d <= b.LonDelta
}

// Prefilter：包围盒粗筛，返回命中行号（升序，保持数据集原始顺序）
// 背景：仅用于降低精确距离计算量；半径不超过 maxKm 的基站若在覆盖范围内必定保留。
func Prefilter(ts []TowerRecord, p Point, maxKm float64) []int {
	b := BoundsAround(p, maxKm)
	var idx []int
	for i := range ts {
		if b.Contains(float64(ts[i].Lat), float64(ts[i].Lon)) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Measure：对预筛后的行计算距离并标记是否在覆盖范围内
func Measure(ts []TowerRecord, idx []int, p Point) []CandidateMatch {
	out := make([]CandidateMatch, 0, len(idx))
	for _, i := range idx {
		t := ts[i]
		d := DistanceMeters(p, float64(t.Lat), float64(t.Lon))
		out = append(out, CandidateMatch{
			Index:          i,
			Tower:          t,
			DistanceMeters: d,
			InRange:        d <= float64(t.Range),
		})
	}
	return out
}
