package towers

// Classify：按模式挑选覆盖范围内的候选并补充信号质量与颜色
// 约束：
// 1) 覆盖判定为 DistanceMeters <= Range，不设容差；范围外候选在两种模式下均被丢弃；
// 2) 最近模式下同制式距离相等时取行号更小者，结果与扫描顺序无关；
// 3) 无命中返回空结果，不视为错误。
func Classify(cands []CandidateMatch, mode Mode) Result {
	res := Result{Mode: mode}
	if mode == ModeAllInRange {
		res.InRange = make([]CandidateMatch, 0)
		for _, c := range cands {
			if !c.InRange {
				continue
			}
			res.InRange = append(res.InRange, annotate(c))
		}
		return res
	}
	res.Closest = make(map[RadioType]CandidateMatch)
	for _, c := range cands {
		if !c.InRange {
			continue
		}
		best, ok := res.Closest[c.Tower.Radio]
		if !ok || c.DistanceMeters < best.DistanceMeters ||
			(c.DistanceMeters == best.DistanceMeters && c.Index < best.Index) {
			res.Closest[c.Tower.Radio] = c
		}
	}
	for k, c := range res.Closest {
		res.Closest[k] = annotate(c)
	}
	return res
}

func annotate(c CandidateMatch) CandidateMatch {
	c.SignalQuality = Quality(c.DistanceMeters/1000, float64(c.Tower.Range))
	c.Color = ColorFor(c.Tower.Radio)
	return c
}

// Nearby：预筛 → 测距 → 分类 的完整计算链
func Nearby(ts []TowerRecord, p Point, mode Mode) Result {
	idx := Prefilter(ts, p, DefaultMaxDistanceKm)
	return Classify(Measure(ts, idx, p), mode)
}
