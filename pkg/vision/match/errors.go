package match

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnreadable 源图像无法获取，整批失败
	ErrSourceUnreadable = errors.New("无法读取源图像")
	// ErrCaptureUnavailable 窗口或屏幕截图失败，对编排器表现为 ErrSourceUnreadable
	ErrCaptureUnavailable = errors.New("无法截取窗口")
	// ErrTemplateUnreadable 模板无法读取或尺寸超过源图像，仅影响该模板
	ErrTemplateUnreadable = errors.New("无法读取模板图像")
	// ErrWorkerTimeout 单个模板匹配超时
	ErrWorkerTimeout = errors.New("模板匹配超时")
	// ErrTemplateNotRequested 查询了批次中不存在的模板
	ErrTemplateNotRequested = errors.New("模板不在本批次中")
)

// TemplateError 单个模板的匹配错误
type TemplateError struct {
	ID  string
	Err error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("模板 %s: %v", e.ID, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// ImageSizeError 模板尺寸大于源图像
type ImageSizeError struct {
	SourceSize [2]int
	SearchSize [2]int
}

func (e *ImageSizeError) Error() string {
	return fmt.Sprintf("搜索图像尺寸 %dx%d 大于源图像 %dx%d",
		e.SearchSize[0], e.SearchSize[1], e.SourceSize[0], e.SourceSize[1])
}

// Is 使 errors.Is(err, ErrTemplateUnreadable) 成立
func (e *ImageSizeError) Is(target error) bool {
	return target == ErrTemplateUnreadable
}

// SourceError 包装源图像错误，同时匹配 ErrSourceUnreadable
func SourceError(source string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrSourceUnreadable, source)
	}
	return fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, source, cause)
}

// CaptureError 包装截图错误，同时匹配 ErrCaptureUnavailable 与 ErrSourceUnreadable
func CaptureError(window string, cause error) error {
	return fmt.Errorf("%w (%w): %s: %w", ErrSourceUnreadable, ErrCaptureUnavailable, window, cause)
}
