package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"tower-api/internal/towers"
)

const fileSuffix = ".csv.gz"

// 必需列；其余列（mcc/net/cell 等）读取时忽略
var requiredColumns = []string{"lat", "lon", "radio", "range"}

// FileSource：目录下按区域存放的 <CODE>.csv.gz
// 背景：沿用 OpenCelliD 导出格式，仅保留 lat/lon/radio/range 四列以控制内存。
type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource { return &FileSource{Dir: dir} }

func (f *FileSource) Name() string { return "file" }

// Available：扫描目录中的 .csv.gz 文件名作为区域标识（大写、排序）
func (f *FileSource) Available(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || !strings.HasSuffix(strings.ToLower(name), fileSuffix) {
			continue
		}
		out = append(out, strings.ToUpper(name[:len(name)-len(fileSuffix)]))
	}
	sort.Strings(out)
	return out, nil
}

// resolve：优先精确文件名，其次大小写不敏感匹配
func (f *FileSource) resolve(region string) (string, bool) {
	p := filepath.Join(f.Dir, region+fileSuffix)
	if st, err := os.Stat(p); err == nil && !st.IsDir() {
		return p, true
	}
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return "", false
	}
	for _, ent := range entries {
		if !ent.IsDir() && strings.EqualFold(ent.Name(), region+fileSuffix) {
			return filepath.Join(f.Dir, ent.Name()), true
		}
	}
	return "", false
}

func (f *FileSource) Load(ctx context.Context, region string) ([]towers.TowerRecord, error) {
	p, ok := f.resolve(region)
	if !ok {
		avail, err := f.Available(ctx)
		if err != nil {
			// 目录缺失或不可读属于部署故障，不按区域不存在处理
			return nil, &LoadError{Region: region, Path: f.Dir, Err: err}
		}
		return nil, &NotFoundError{Region: region, Available: avail}
	}
	fh, err := os.Open(p)
	if err != nil {
		return nil, &LoadError{Region: region, Path: p, Err: err}
	}
	defer fh.Close()
	zr, err := gzip.NewReader(fh)
	if err != nil {
		return nil, &LoadError{Region: region, Path: p, Err: err}
	}
	defer zr.Close()
	rows, err := ReadTowersCSV(ctx, zr)
	if err != nil {
		return nil, &LoadError{Region: region, Path: p, Err: err}
	}
	return rows, nil
}

// ReadTowersCSV：解析带表头的基站 CSV
// 约束：空数值单元读取为 NaN（永不命中覆盖判定）；非数值单元返回错误并附行号；行顺序保持不变。
func ReadTowersCSV(ctx context.Context, r io.Reader) ([]towers.TowerRecord, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv: missing header")
		}
		return nil, err
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idx := make([]int, len(requiredColumns))
	for i, name := range requiredColumns {
		c, ok := col[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		idx[i] = c
	}
	var out []towers.TowerRecord
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		if line%65536 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var t towers.TowerRecord
		if t.Lat, err = parseFloat32(rec, idx[0]); err != nil {
			return nil, fmt.Errorf("line %d: lat: %w", line, err)
		}
		if t.Lon, err = parseFloat32(rec, idx[1]); err != nil {
			return nil, fmt.Errorf("line %d: lon: %w", line, err)
		}
		if idx[2] < len(rec) {
			t.Radio = towers.ParseRadioType(rec[idx[2]])
		}
		if t.Range, err = parseFloat32(rec, idx[3]); err != nil {
			return nil, fmt.Errorf("line %d: range: %w", line, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func parseFloat32(rec []string, i int) (float32, error) {
	if i >= len(rec) {
		return float32(math.NaN()), nil
	}
	s := strings.TrimSpace(rec[i])
	if s == "" {
		return float32(math.NaN()), nil
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}
