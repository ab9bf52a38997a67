// Package match 实现并发多模板匹配编排
//
// 一次批量匹配针对同一张源图像与多个模板，每个模板由独立的 worker 完成
// 读取、相关计算、最佳位置选择，编排器在全部 worker 结束后汇总结果。
// 只有源图像不可用时整批失败，单个模板的失败只记录在该模板名下。
package match

import (
	"image"
	"sort"
	"sync"
	"time"

	"github.com/zoeyai/zoeymatch/pkg/vision/raster"
	"github.com/zoeyai/zoeymatch/pkg/vision/score"
)

// Point 表示二维坐标点
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rectangle 表示矩形区域（四个角点）
type Rectangle struct {
	TopLeft     Point `json:"top_left"`
	BottomLeft  Point `json:"bottom_left"`
	BottomRight Point `json:"bottom_right"`
	TopRight    Point `json:"top_right"`
}

// NewRectangle 从左上角坐标和宽高创建矩形
func NewRectangle(x, y, w, h int) Rectangle {
	return Rectangle{
		TopLeft:     Point{X: x, Y: y},
		BottomLeft:  Point{X: x, Y: y + h},
		BottomRight: Point{X: x + w, Y: y + h},
		TopRight:    Point{X: x + w, Y: y},
	}
}

// ToImageRect 转换为 image.Rectangle
func (r Rectangle) ToImageRect() image.Rectangle {
	return image.Rect(r.TopLeft.X, r.TopLeft.Y, r.BottomRight.X, r.BottomRight.Y)
}

// CenterOf 计算匹配区域中心点，宽高奇数时向下取整
func CenterOf(topLeft image.Point, w, h int) Point {
	return Point{X: topLeft.X + w/2, Y: topLeft.Y + h/2}
}

// Correlator 相关计算，返回归一化到 [0,1] 的得分矩阵
type Correlator interface {
	Correlate(source, template *raster.Raster, method score.Method) (*score.Surface, error)
}

// TemplateLoader 按标识读取模板图像
type TemplateLoader interface {
	LoadTemplate(id string) (*raster.Raster, error)
}

// Sink 结果展示
type Sink interface {
	Show(title string, annotation *Annotation) error
}

// TemplateResult 单个模板的匹配结果
type TemplateResult struct {
	ID string `json:"id"`
	// Center 匹配区域中心点
	Center Point `json:"center"`
	// Rectangle 匹配区域
	Rectangle Rectangle `json:"rectangle"`
	// Score 归一化得分矩阵中最佳位置的值
	Score float64 `json:"score"`
	// Elapsed 耗时
	Elapsed time.Duration `json:"elapsed"`
	Err     error         `json:"-"`
}

// BatchResult 批量匹配结果
type BatchResult struct {
	// Points 成功匹配的模板中心点
	Points map[string]Point `json:"points"`
	// Failures 失败模板及原因
	Failures map[string]error `json:"-"`
	// Details 每个成功模板的完整结果
	Details map[string]TemplateResult `json:"details,omitempty"`
	// Annotation 标注了匹配区域的源图像副本
	Annotation *Annotation `json:"-"`
}

func newBatchResult(annotation *Annotation) *BatchResult {
	return &BatchResult{
		Points:     make(map[string]Point),
		Failures:   make(map[string]error),
		Details:    make(map[string]TemplateResult),
		Annotation: annotation,
	}
}

// Lookup 查询模板结果，失败模板返回其错误
func (r *BatchResult) Lookup(id string) (Point, error) {
	if p, ok := r.Points[id]; ok {
		return p, nil
	}
	if err, ok := r.Failures[id]; ok {
		return Point{}, err
	}
	return Point{}, &TemplateError{ID: id, Err: ErrTemplateNotRequested}
}

// FailureMessages 返回失败原因的字符串形式，便于序列化
func (r *BatchResult) FailureMessages() map[string]string {
	out := make(map[string]string, len(r.Failures))
	for id, err := range r.Failures {
		out[id] = err.Error()
	}
	return out
}

// Box 标注框
type Box struct {
	ID   string
	Rect image.Rectangle
}

// Annotation 源图像副本与各 worker 找到的区域
// 多个 worker 并发添加标注框，绘制在汇总后单线程完成
type Annotation struct {
	Source *raster.Raster

	mu    sync.Mutex
	boxes []Box
}

// NewAnnotation 复制源图像创建标注
func NewAnnotation(source *raster.Raster) *Annotation {
	return &Annotation{Source: source.Clone()}
}

// Add 添加标注框
func (a *Annotation) Add(id string, rect image.Rectangle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.boxes = append(a.boxes, Box{ID: id, Rect: rect})
}

// Boxes 返回按模板标识排序的标注框副本
func (a *Annotation) Boxes() []Box {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Box, len(a.boxes))
	copy(out, a.boxes)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
