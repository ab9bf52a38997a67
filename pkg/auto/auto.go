// Package auto 提供窗口自动化共享的类型与进程查询
// 具体功能分布在子包中：window, input。
package auto

import (
	"image"
	"time"
)

// Point 表示二维坐标点
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Region 表示矩形区域
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty 宽或高为 0
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Rect 转换为 image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Offset 将区域内相对坐标转换为屏幕坐标
func (r Region) Offset(x, y int) Point {
	return Point{X: r.X + x, Y: r.Y + y}
}

// Sleep 休眠
func Sleep(d time.Duration) {
	time.Sleep(d)
}
