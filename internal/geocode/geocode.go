// 包 geocode：正向/反向地理编码与 IP 定位，为查询层提供用户坐标与区域标识
package geocode

import (
	"context"
	"errors"
	"fmt"

	"tower-api/internal/towers"
)

var (
	// ErrUpstream 地理编码服务失败；核心层不重试，由调用方决定
	ErrUpstream = errors.New("geocoding upstream failure")
	// ErrNoResult 服务正常但无匹配结果，同样视为上游失败
	ErrNoResult = fmt.Errorf("%w: no result", ErrUpstream)
)

// Geocoder：地名 → 坐标；坐标 → ISO alpha-3 国家码
type Geocoder interface {
	Geocode(ctx context.Context, query string) (towers.Point, error)
	ReverseCountry(ctx context.Context, p towers.Point) (string, error)
}
