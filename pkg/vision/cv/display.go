package cv

import (
	"image/color"

	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeymatch/pkg/vision/match"
)

// DefaultWaitKey 展示窗口刷新等待时间（毫秒）
const DefaultWaitKey = 30

// BoxColor 标注框颜色
var BoxColor = color.RGBA{0, 0, 0, 255}

// Display 在 OpenCV 窗口中展示标注结果
type Display struct {
	// Wait 每次展示后的 WaitKey 延迟，0 表示一直等待按键
	Wait int
	// SavePath 非空时同时保存标注图像
	SavePath string
}

// NewDisplay 创建展示窗口
func NewDisplay() *Display {
	return &Display{Wait: DefaultWaitKey}
}

// Show 绘制标注框并展示
func (d *Display) Show(title string, annotation *match.Annotation) error {
	img, err := Render(annotation)
	if err != nil {
		return err
	}
	defer img.Close()

	if d.SavePath != "" {
		if err := WriteImage(d.SavePath, img); err != nil {
			return err
		}
	}

	window := gocv.NewWindow(title)
	defer window.Close()
	window.IMShow(img)
	window.WaitKey(d.Wait)
	return nil
}

// Render 在源图像副本上绘制所有标注框，调用方负责 Close
func Render(annotation *match.Annotation) (gocv.Mat, error) {
	img, err := RasterToMat(annotation.Source)
	if err != nil {
		return img, err
	}
	for _, box := range annotation.Boxes() {
		gocv.Rectangle(&img, box.Rect, BoxColor, 2)
	}
	return img, nil
}
