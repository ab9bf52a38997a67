// Package cv 基于 gocv 实现图像读取、模板相关计算与结果展示
//
// 基本用法:
//
//	loader := cv.NewFileLoader("templates")
//	source, err := loader.LoadSource("screen.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m := match.NewMatcher(cv.NewCorrelator(), loader, match.WithSink(cv.NewDisplay()))
//	res, err := m.Match(ctx, score.CCoeffNormed, source, []string{"button.png"}, true)
package cv
