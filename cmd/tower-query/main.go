package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tower-api/internal/dataset"
	"tower-api/internal/logger"
	"tower-api/internal/query"
	"tower-api/internal/towers"
)

// 文档注释：命令行查询指定国家、坐标附近的基站
// 用法：tower-query <COUNTRY> -lat 40.0 -lon -74.0 [-filter closest|within] [-dir databases/towers]
// 约束：仅读取本地压缩文件；结果以 JSON 数组输出到 stdout，日志走 stderr。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	args := os.Args[1:]
	country := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		country, args = args[0], args[1:]
	}
	fs := flag.NewFlagSet("tower-query", flag.ExitOnError)
	lat := fs.Float64("lat", 0, "latitude in degrees")
	lon := fs.Float64("lon", 0, "longitude in degrees")
	filter := fs.String("filter", "closest", "closest | within")
	dir := fs.String("dir", "", "directory of <CODE>.csv.gz files (default $TOWERS_DIR)")
	timeout := fs.Duration("timeout", 2*time.Minute, "overall timeout")
	_ = fs.Parse(args)
	if country == "" && fs.NArg() > 0 {
		country = fs.Arg(0)
	}
	if country == "" {
		fmt.Fprintln(os.Stderr, "usage: tower-query <COUNTRY> -lat <lat> -lon <lon> [-filter closest|within]")
		os.Exit(2)
	}
	mode, ok := towers.ParseMode(*filter)
	if !ok {
		l.Error("filter_invalid", "filter", *filter)
		os.Exit(2)
	}
	if *dir == "" {
		*dir = os.Getenv("TOWERS_DIR")
	}
	if *dir == "" {
		*dir = filepath.Join("databases", "towers")
	}
	st, err := dataset.NewStore(dataset.NewFileSource(*dir), 1)
	if err != nil {
		l.Error("dataset_store_error", "err", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	res, err := query.NewService(st, nil).Query(ctx, country, towers.Point{Lat: *lat, Lon: *lon}, mode)
	if err != nil {
		l.Error("query_error", "country", country, "err", err)
		os.Exit(1)
	}
	if err := writeMatches(os.Stdout, res.Matches()); err != nil {
		l.Error("output_error", "err", err)
		os.Exit(1)
	}
}

type row struct {
	Type          towers.RadioType `json:"type"`
	Lat           float32          `json:"lat"`
	Lon           float32          `json:"lon"`
	Range         float32          `json:"range"`
	Color         towers.Color     `json:"color"`
	Distance      float64          `json:"distance"`
	SignalQuality float64          `json:"signal_quality"`
}

func writeMatches(w io.Writer, ms []towers.CandidateMatch) error {
	out := make([]row, 0, len(ms))
	for _, m := range ms {
		out = append(out, row{
			Type: m.Tower.Radio, Lat: m.Tower.Lat, Lon: m.Tower.Lon, Range: m.Tower.Range,
			Color: m.Color, Distance: m.DistanceMeters, SignalQuality: m.SignalQuality,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
