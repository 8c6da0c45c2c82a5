package towers

import "math"

// DefaultDecay 信号衰减系数 k
const DefaultDecay = 2.5

// Quality：信号质量估计 Q = e^(-k·d/R)·100，保留两位小数
// 参数：distanceKm 为千米，rangeMeters 为米；rangeMeters 为 0 时返回 0。
func Quality(distanceKm, rangeMeters float64) float64 {
	return QualityWithDecay(distanceKm, rangeMeters, DefaultDecay)
}

// QualityWithDecay 同 Quality，可指定衰减系数
func QualityWithDecay(distanceKm, rangeMeters, k float64) float64 {
	if rangeMeters == 0 {
		return 0
	}
	q := math.Exp(-k*(distanceKm*1000/rangeMeters)) * 100
	q = math.Round(q*100) / 100
	if q > 100 {
		return 100
	}
	if q < 0 || math.IsNaN(q) {
		return 0
	}
	return q
}
