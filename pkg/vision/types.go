package vision

import (
	"github.com/zoeyai/zoeymatch/pkg/vision/match"
	"github.com/zoeyai/zoeymatch/pkg/vision/score"
)

// Version 版本号
const Version = "1.0.0"

// ============ 类型别名 ============

type (
	// Point 匹配中心点
	Point = match.Point
	// Rectangle 匹配区域
	Rectangle = match.Rectangle
	// BatchResult 批量匹配结果
	BatchResult = match.BatchResult
	// TemplateResult 单个模板结果
	TemplateResult = match.TemplateResult
	// Method 比较方法
	Method = score.Method
)

// 比较方法
const (
	SqDiff       = score.SqDiff
	SqDiffNormed = score.SqDiffNormed
	CCorr        = score.CCorr
	CCorrNormed  = score.CCorrNormed
	CCoeff       = score.CCoeff
	CCoeffNormed = score.CCoeffNormed
)

// ParseMethod 解析比较方法名称
func ParseMethod(s string) (Method, error) {
	return score.ParseMethod(s)
}

// 错误
var (
	ErrSourceUnreadable     = match.ErrSourceUnreadable
	ErrCaptureUnavailable   = match.ErrCaptureUnavailable
	ErrTemplateUnreadable   = match.ErrTemplateUnreadable
	ErrWorkerTimeout        = match.ErrWorkerTimeout
	ErrTemplateNotRequested = match.ErrTemplateNotRequested
)
