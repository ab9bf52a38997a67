// Package vision 提供多模板匹配的入口
//
// 源图像可以来自文件或窗口截图，每个模板独立匹配，
// 返回模板标识到匹配中心点的映射。
//
// 基本用法:
//
//	res, err := vision.MatchFile(ctx, vision.CCoeffNormed, "screen.png",
//	    []string{"ok.png", "cancel.png"}, false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for id, p := range res.Points {
//	    fmt.Printf("%s: (%d, %d)\n", id, p.X, p.Y)
//	}
//
//	// 在窗口中查找单个模板
//	p, err := vision.MatchWindowOne(ctx, vision.SqDiffNormed, "Notepad", "save.png", false)
package vision

import (
	"context"

	"github.com/zoeyai/zoeymatch/pkg/auto/window"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
	"github.com/zoeyai/zoeymatch/pkg/vision/match"
	"github.com/zoeyai/zoeymatch/pkg/vision/raster"
)

var (
	// captureWindow 窗口截图实现
	captureWindow window.Capturer = window.Capture
	// newCorrelator 相关计算实现
	newCorrelator = func() match.Correlator { return cv.NewCorrelator() }
)

// MatchFile 在图像文件中匹配所有模板
// 源图像无法读取时返回 ErrSourceUnreadable，单个模板失败记录在结果的 Failures 中
func MatchFile(ctx context.Context, method Method, sourcePath string, templatePaths []string, showResult bool, opts ...Option) (*BatchResult, error) {
	cfg := applyOptions(opts)
	loader := cv.NewFileLoader(cfg.templateDir)

	source, err := loader.LoadSource(sourcePath)
	if err != nil {
		cfg.logger.Error("读取源图像失败: %v", err)
		return nil, err
	}
	return run(ctx, cfg, loader, method, source, templatePaths, showResult)
}

// MatchWindow 在窗口截图中匹配所有模板
// 截图失败时返回的错误同时匹配 ErrCaptureUnavailable 与 ErrSourceUnreadable
func MatchWindow(ctx context.Context, method Method, windowRef string, templatePaths []string, showResult bool, opts ...Option) (*BatchResult, error) {
	cfg := applyOptions(opts)
	loader := cv.NewFileLoader(cfg.templateDir)

	source, err := captureWindow(windowRef)
	if err == nil && source.Empty() {
		err = raster.ErrEmpty
	}
	if err != nil {
		err = match.CaptureError(windowRef, err)
		cfg.logger.Error("窗口截图失败: %v", err)
		return nil, err
	}
	cfg.logger.Debug("窗口截图: %s %dx%d", windowRef, source.Width, source.Height)
	return run(ctx, cfg, loader, method, source, templatePaths, showResult)
}

// MatchFileOne 在图像文件中匹配单个模板
func MatchFileOne(ctx context.Context, method Method, sourcePath, templatePath string, showResult bool, opts ...Option) (Point, error) {
	res, err := MatchFile(ctx, method, sourcePath, []string{templatePath}, showResult, opts...)
	if err != nil {
		return Point{}, err
	}
	return res.Lookup(templatePath)
}

// MatchWindowOne 在窗口截图中匹配单个模板
func MatchWindowOne(ctx context.Context, method Method, windowRef, templatePath string, showResult bool, opts ...Option) (Point, error) {
	res, err := MatchWindow(ctx, method, windowRef, []string{templatePath}, showResult, opts...)
	if err != nil {
		return Point{}, err
	}
	return res.Lookup(templatePath)
}

func run(ctx context.Context, cfg *matchConfig, loader match.TemplateLoader, method Method, source *raster.Raster, templatePaths []string, showResult bool) (*BatchResult, error) {
	m := match.NewMatcher(newCorrelator(), loader, cfg.matcherOptions()...)
	return m.Match(ctx, method, source, templatePaths, showResult)
}
