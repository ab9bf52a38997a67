package score

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmptySurface 得分矩阵为空
	ErrEmptySurface = errors.New("得分矩阵为空")
	// ErrNoFiniteScore 得分矩阵中没有可比较的值 (全部为 NaN)
	ErrNoFiniteScore = errors.New("得分矩阵没有有效值")
)

// Surface 模板在源图像上滑动得到的得分矩阵
// 尺寸为 (源高-模板高+1) x (源宽-模板宽+1)，创建后不再修改
type Surface struct {
	m *mat.Dense
}

// NewSurface 由行优先数据创建得分矩阵，data 为 nil 时全部置零
func NewSurface(rows, cols int, data []float64) (*Surface, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptySurface, cols, rows)
	}
	if data != nil && len(data) != rows*cols {
		return nil, fmt.Errorf("得分数据长度不匹配: 期望 %d, 实际 %d", rows*cols, len(data))
	}
	return &Surface{m: mat.NewDense(rows, cols, data)}, nil
}

// FromMatrix 复制任意 gonum 矩阵为得分矩阵
func FromMatrix(a mat.Matrix) (*Surface, error) {
	r, c := a.Dims()
	if r == 0 || c == 0 {
		return nil, ErrEmptySurface
	}
	return &Surface{m: mat.DenseCopyOf(a)}, nil
}

// Dims 返回 (行数, 列数)
func (s *Surface) Dims() (rows, cols int) {
	if s == nil || s.m == nil {
		return 0, 0
	}
	return s.m.Dims()
}

// At 返回 (row, col) 的得分
func (s *Surface) At(row, col int) float64 {
	return s.m.At(row, col)
}

// Empty 是否为空
func (s *Surface) Empty() bool {
	r, c := s.Dims()
	return r == 0 || c == 0
}

// Normalize 线性归一化到 [0, 1]，返回新矩阵
// 所有值相同时结果全为 0
func (s *Surface) Normalize() *Surface {
	rows, cols := s.Dims()
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		data = append(data, s.m.RawRowView(i)...)
	}

	lo, hi := floats.Min(data), floats.Max(data)
	if hi > lo {
		floats.AddConst(-lo, data)
		floats.Scale(1/(hi-lo), data)
	} else {
		for i := range data {
			data[i] = 0
		}
	}
	return &Surface{m: mat.NewDense(rows, cols, data)}
}

// MinMaxLoc 行优先扫描全局最小值与最大值，相同值取第一次出现的位置
// NaN 会被忽略，全部为 NaN 时 ok 为 false；返回的位置中 X 为列，Y 为行
func (s *Surface) MinMaxLoc() (minVal, maxVal float64, minLoc, maxLoc image.Point, ok bool) {
	rows, cols := s.Dims()
	minVal, maxVal = math.Inf(1), math.Inf(-1)
	found := false

	for y := 0; y < rows; y++ {
		row := s.m.RawRowView(y)
		for x := 0; x < cols; x++ {
			v := row[x]
			if math.IsNaN(v) {
				continue
			}
			if !found {
				minVal, maxVal = v, v
				minLoc, maxLoc = image.Pt(x, y), image.Pt(x, y)
				found = true
				continue
			}
			if v < minVal {
				minVal, minLoc = v, image.Pt(x, y)
			}
			if v > maxVal {
				maxVal, maxLoc = v, image.Pt(x, y)
			}
		}
	}
	return minVal, maxVal, minLoc, maxLoc, found
}

// Best 选择最佳匹配的左上角位置
// 差值类方法取全局最小值位置，其余方法取全局最大值位置
func Best(s *Surface, m Method) (image.Point, error) {
	if s.Empty() {
		return image.Point{}, ErrEmptySurface
	}
	_, _, minLoc, maxLoc, ok := s.MinMaxLoc()
	if !ok {
		rows, cols := s.Dims()
		return image.Point{}, fmt.Errorf("%w: %dx%d", ErrNoFiniteScore, cols, rows)
	}
	if m.LowerIsBetter() {
		return minLoc, nil
	}
	return maxLoc, nil
}
