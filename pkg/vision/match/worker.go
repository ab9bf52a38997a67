package match

import (
	"context"
	"fmt"
	"time"

	"github.com/zoeyai/zoeymatch/pkg/vision/raster"
	"github.com/zoeyai/zoeymatch/pkg/vision/score"
)

// runWorker 匹配单个模板，超时或失败只影响该模板
func (m *Matcher) runWorker(ctx context.Context, id string, source *raster.Raster, method score.Method, annotation *Annotation) TemplateResult {
	startTime := time.Now()

	// 批量已取消时不再读取模板
	if err := ctx.Err(); err != nil {
		result := TemplateResult{ID: id, Err: &TemplateError{ID: id, Err: err}, Elapsed: time.Since(startTime)}
		m.opts.Logger.LogEvent("TPL", false, 0, result.Err.Error())
		return result
	}

	if m.opts.WorkerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.WorkerTimeout)
		defer cancel()
	}

	// 读取与相关计算不可取消，放在独立 goroutine 中，超时后结果丢弃
	done := make(chan TemplateResult, 1)
	go func() {
		done <- m.matchOne(id, source, method)
	}()

	var result TemplateResult
	select {
	case result = <-done:
	case <-ctx.Done():
		err := ctx.Err()
		if err == context.DeadlineExceeded {
			err = fmt.Errorf("%w (%s)", ErrWorkerTimeout, m.opts.WorkerTimeout)
		}
		result = TemplateResult{ID: id, Err: &TemplateError{ID: id, Err: err}}
	}
	result.Elapsed = time.Since(startTime)

	elapsedMs := float64(result.Elapsed.Microseconds()) / 1000
	if result.Err != nil {
		m.opts.Logger.LogEvent("TPL", false, elapsedMs, result.Err.Error())
		return result
	}

	annotation.Add(id, result.Rectangle.ToImageRect())
	m.opts.Logger.LogEvent("TPL", true, elapsedMs,
		fmt.Sprintf("%s -> (%d, %d)", id, result.Center.X, result.Center.Y))
	return result
}

// matchOne 读取模板 -> 尺寸检查 -> 相关计算 -> 选择最佳位置
func (m *Matcher) matchOne(id string, source *raster.Raster, method score.Method) TemplateResult {
	fail := func(err error) TemplateResult {
		return TemplateResult{ID: id, Err: &TemplateError{ID: id, Err: err}}
	}

	tpl, err := m.loader.LoadTemplate(id)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrTemplateUnreadable, err))
	}
	if tpl.Empty() {
		return fail(ErrTemplateUnreadable)
	}

	if !tpl.Fits(source) {
		return fail(&ImageSizeError{
			SourceSize: [2]int{source.Width, source.Height},
			SearchSize: [2]int{tpl.Width, tpl.Height},
		})
	}

	surface, err := m.correlator.Correlate(source, tpl, method)
	if err != nil {
		return fail(fmt.Errorf("相关计算失败: %w", err))
	}

	rows, cols := surface.Dims()
	if rows != source.Height-tpl.Height+1 || cols != source.Width-tpl.Width+1 {
		return fail(fmt.Errorf("得分矩阵尺寸错误: %dx%d", cols, rows))
	}

	loc, err := score.Best(surface, method)
	if err != nil {
		return fail(err)
	}

	return TemplateResult{
		ID:        id,
		Center:    CenterOf(loc, tpl.Width, tpl.Height),
		Rectangle: NewRectangle(loc.X, loc.Y, tpl.Width, tpl.Height),
		Score:     surface.At(loc.Y, loc.X),
	}
}
