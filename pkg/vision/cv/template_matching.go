package cv

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeymatch/pkg/vision/match"
	"github.com/zoeyai/zoeymatch/pkg/vision/raster"
	"github.com/zoeyai/zoeymatch/pkg/vision/score"
)

// Correlator 基于 OpenCV MatchTemplate 的相关计算
type Correlator struct{}

// NewCorrelator 创建相关计算器
func NewCorrelator() *Correlator {
	return &Correlator{}
}

// Correlate 计算得分矩阵并归一化到 [0,1]
// 源图像与模板通道数不同时均转换为灰度
func (c *Correlator) Correlate(source, template *raster.Raster, method score.Method) (*score.Surface, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("不支持的比较方法: %d", method)
	}
	if err := checkSourceLargerThanSearch(source, template); err != nil {
		return nil, err
	}

	src, err := RasterToMat(source)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	tpl, err := RasterToMat(template)
	if err != nil {
		return nil, err
	}
	defer tpl.Close()

	if src.Channels() != tpl.Channels() {
		srcGray, tplGray := ToGray(src), ToGray(tpl)
		defer srcGray.Close()
		defer tplGray.Close()
		src, tpl = srcGray, tplGray
	}

	result := c.getTemplateResultMatrix(src, tpl, method)
	defer result.Close()
	return surfaceFromMat(result)
}

// getTemplateResultMatrix 计算并归一化模板匹配结果矩阵
func (c *Correlator) getTemplateResultMatrix(src, tpl gocv.Mat, method score.Method) gocv.Mat {
	mask := gocv.NewMat()
	defer mask.Close()

	raw := gocv.NewMat()
	defer raw.Close()
	gocv.MatchTemplate(src, tpl, &raw, gocv.TemplateMatchMode(method), mask)

	result := gocv.NewMat()
	gocv.Normalize(raw, &result, 0, 1, gocv.NormMinMax)
	return result
}

// surfaceFromMat 复制 CV_32F 结果矩阵
func surfaceFromMat(m gocv.Mat) (*score.Surface, error) {
	if m.Empty() {
		return nil, score.ErrEmptySurface
	}
	values, err := m.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("读取得分矩阵失败: %w", err)
	}
	data := make([]float64, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}
	return score.NewSurface(m.Rows(), m.Cols(), data)
}

// checkSourceLargerThanSearch 检查源图像是否大于搜索图像
func checkSourceLargerThanSearch(source, search *raster.Raster) error {
	if source.Empty() || search.Empty() {
		return raster.ErrEmpty
	}
	if !search.Fits(source) {
		return &match.ImageSizeError{
			SourceSize: [2]int{source.Width, source.Height},
			SearchSize: [2]int{search.Width, search.Height},
		}
	}
	return nil
}
