package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRegion 区域标识不是 3 位字母
	ErrInvalidRegion = errors.New("invalid region identifier")
	// ErrNotFound 数据源中没有该区域
	ErrNotFound = errors.New("region dataset not found")
	// ErrLoad 数据源存在但无法解析
	ErrLoad = errors.New("region dataset load failed")
)

// NotFoundError：携带可用区域列表，便于调用方提示
type NotFoundError struct {
	Region    string
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no tower dataset for region %q (available: %s)", e.Region, strings.Join(e.Available, ", "))
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// LoadError：数据源解析失败；缓存保持未设置，重试会重新加载
type LoadError struct {
	Region string
	Path   string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("load region %s from %s: %v", e.Region, e.Path, e.Err)
	}
	return fmt.Sprintf("load region %s: %v", e.Region, e.Err)
}

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

func (e *LoadError) Unwrap() error { return e.Err }
