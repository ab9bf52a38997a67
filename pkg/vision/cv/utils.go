package cv

import (
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeymatch/pkg/vision/raster"
)

// ReadImage 读取彩色图像文件（BGR）
func ReadImage(filename string) (gocv.Mat, error) {
	mat := gocv.IMRead(filename, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return mat, fmt.Errorf("无法读取图像: %s", filename)
	}
	return mat, nil
}

// WriteImage 保存图像文件
func WriteImage(filename string, img gocv.Mat) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	if ok := gocv.IMWrite(filename, img); !ok {
		return fmt.Errorf("保存图像失败: %s", filename)
	}
	return nil
}

// ToGray 转换为灰度图
func ToGray(src gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	switch src.Channels() {
	case 1:
		src.CopyTo(&dst)
	case 4:
		gocv.CvtColor(src, &dst, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)
	}
	return dst
}

// MatToRaster 复制 8 位 Mat 的像素到 Raster
func MatToRaster(mat gocv.Mat) (*raster.Raster, error) {
	if mat.Empty() {
		return nil, raster.ErrEmpty
	}
	if mat.Type() != matType(mat.Channels()) {
		return nil, fmt.Errorf("不支持的图像类型: %v", mat.Type())
	}
	src := mat
	if !mat.IsContinuous() {
		src = mat.Clone()
		defer src.Close()
	}
	pix := make([]byte, mat.Cols()*mat.Rows()*mat.Channels())
	copy(pix, src.ToBytes())
	return raster.New(mat.Cols(), mat.Rows(), mat.Channels(), pix)
}

// RasterToMat 创建持有像素副本的 Mat，调用方负责 Close
func RasterToMat(r *raster.Raster) (gocv.Mat, error) {
	if r.Empty() {
		return gocv.NewMat(), raster.ErrEmpty
	}
	mt := matType(r.Channels)
	if mt < 0 {
		return gocv.NewMat(), fmt.Errorf("不支持的通道数: %d", r.Channels)
	}
	view, err := gocv.NewMatFromBytes(r.Height, r.Width, mt, r.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("图像转换失败: %w", err)
	}
	defer view.Close()
	return view.Clone(), nil
}

func matType(channels int) gocv.MatType {
	switch channels {
	case 1:
		return gocv.MatTypeCV8UC1
	case 3:
		return gocv.MatTypeCV8UC3
	case 4:
		return gocv.MatTypeCV8UC4
	default:
		return -1
	}
}
