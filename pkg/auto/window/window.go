// Package window 提供按名称查找窗口、截取窗口客户区图像与定位窗口
//
// 各平台的查找方式不同:
//   - linux: 在 X11 窗口树中按名称正则（不区分大小写）深度优先查找
//   - windows: 按窗口标题精确查找
//   - 其他平台: 按进程名或窗口标题查找
package window

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/zoeyai/zoeymatch/pkg/auto"
	"github.com/zoeyai/zoeymatch/pkg/vision/raster"
)

var (
	// ErrWindowNotFound 未找到窗口
	ErrWindowNotFound = errors.New("未找到窗口")
	// ErrCaptureFailed 截图失败
	ErrCaptureFailed = errors.New("窗口截图失败")
)

// Info 窗口信息
type Info struct {
	// Handle 平台窗口句柄（X11 Window / HWND / PID）
	Handle uint64 `json:"handle"`
	Title  string `json:"title"`
	// PID 所属进程，未知时为 0
	PID   int    `json:"pid"`
	Owner string `json:"owner,omitempty"`
	// Bounds 客户区的屏幕坐标
	Bounds auto.Region `json:"bounds"`
}

// Capturer 截取窗口图像
type Capturer func(name string) (*raster.Raster, error)

// Capture 截取整个窗口客户区，返回 BGR 图像
func Capture(name string) (*raster.Raster, error) {
	return CaptureSize(name, 0, 0)
}

// CaptureSize 从客户区左上角截取 width x height，0 表示窗口尺寸，超出部分被裁剪
func CaptureSize(name string, width, height int) (*raster.Raster, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: 窗口名称为空", ErrWindowNotFound)
	}
	return captureWindow(name, width, height)
}

// Locate 查找窗口并返回其客户区位置
func Locate(name string) (*Info, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: 窗口名称为空", ErrWindowNotFound)
	}
	info, err := locateWindow(name)
	if err != nil {
		return nil, err
	}
	if info.PID > 0 && info.Owner == "" {
		if p, err := auto.GetProcessByPID(info.PID); err == nil {
			info.Owner = p.Name
		}
	}
	return info, nil
}

// NamePattern 将窗口名称编译为不区分大小写的扩展正则
func NamePattern(name string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + name)
	if err != nil {
		return nil, fmt.Errorf("无效的窗口名称 %q: %w", name, err)
	}
	return re, nil
}

// matchTitle 任一标题匹配即返回该标题
func matchTitle(re *regexp.Regexp, titles ...string) (string, bool) {
	for _, title := range titles {
		if title != "" && re.MatchString(title) {
			return title, true
		}
	}
	return "", false
}

// clipSize 计算实际截图尺寸
func clipSize(width, height, winWidth, winHeight int) (int, int) {
	if width <= 0 || width > winWidth {
		width = winWidth
	}
	if height <= 0 || height > winHeight {
		height = winHeight
	}
	return width, height
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", ErrWindowNotFound, name)
}
