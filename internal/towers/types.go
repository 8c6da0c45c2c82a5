// 包 towers：基站邻近计算核心（包围盒预筛、球面距离、覆盖判定、信号质量）
// 背景：纯计算层，不依赖网络与存储；输入为只读基站表与用户坐标，输出为每次请求独立的结果。
package towers

import (
	"sort"
	"strings"
)

// RadioType：基站制式标签
// 约束：已知制式统一为大写常量；未知制式保留其大写原始标签，按原标签分组。
type RadioType string

const (
	GSM  RadioType = "GSM"
	CDMA RadioType = "CDMA"
	UMTS RadioType = "UMTS"
	LTE  RadioType = "LTE"
	NR   RadioType = "NR"
)

// ParseRadioType：解析数据源中的 radio 列
func ParseRadioType(s string) RadioType {
	return RadioType(strings.ToUpper(strings.TrimSpace(s)))
}

// Known 报告是否为已知的五种制式之一
func (r RadioType) Known() bool {
	switch r {
	case GSM, CDMA, UMTS, LTE, NR:
		return true
	}
	return false
}

// TowerRecord：单条基站记录，加载后只读；身份为其在区域表中的行号
type TowerRecord struct {
	Lat   float32
	Lon   float32
	Radio RadioType
	Range float32 // 覆盖半径（米）
}

// Point：用户坐标（WGS84，度）
type Point struct {
	Lat float64
	Lon float64
}

// Color：前端展示颜色标签
type Color string

const (
	Blue   Color = "blue"
	Green  Color = "green"
	Orange Color = "orange"
	Purple Color = "purple"
	Black  Color = "black"
	Red    Color = "red"
)

var colorByRadio = map[RadioType]Color{
	LTE:  Blue,
	GSM:  Green,
	CDMA: Orange,
	UMTS: Purple,
	NR:   Black,
}

// ColorFor：制式到颜色的固定映射，未知制式为红色
func ColorFor(r RadioType) Color {
	if c, ok := colorByRadio[r]; ok {
		return c
	}
	return Red
}

// Mode：结果模式
type Mode int

const (
	// ModeClosestByType 每种制式仅保留覆盖范围内最近的一座
	ModeClosestByType Mode = iota
	// ModeAllInRange 返回全部覆盖范围内的基站
	ModeAllInRange
)

func (m Mode) String() string {
	switch m {
	case ModeClosestByType:
		return "closest"
	case ModeAllInRange:
		return "within"
	}
	return "unknown"
}

// ParseMode：解析 closest/within，其余返回 false
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "closest", "":
		return ModeClosestByType, true
	case "within", "all":
		return ModeAllInRange, true
	}
	return 0, false
}

// CandidateMatch：一次查询中的候选基站及其派生字段
// 约束：Index 为该基站在区域表中的原始行号，用于稳定的并列裁决。
type CandidateMatch struct {
	Index          int
	Tower          TowerRecord
	DistanceMeters float64
	InRange        bool
	SignalQuality  float64
	Color          Color
}

// Result：查询结果；Closest 仅在 ModeClosestByType 下填充，InRange 仅在 ModeAllInRange 下填充
type Result struct {
	Mode    Mode
	Closest map[RadioType]CandidateMatch
	InRange []CandidateMatch
}

// Len 返回结果条数
func (r *Result) Len() int {
	if r.Mode == ModeClosestByType {
		return len(r.Closest)
	}
	return len(r.InRange)
}

// Matches：以确定顺序展开结果
// 背景：map 遍历顺序随机，对外输出需稳定；最近模式按制式标签排序，全量模式保持数据集顺序。
func (r *Result) Matches() []CandidateMatch {
	if r.Mode == ModeAllInRange {
		return r.InRange
	}
	keys := make([]RadioType, 0, len(r.Closest))
	for k := range r.Closest {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]CandidateMatch, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.Closest[k])
	}
	return out
}
