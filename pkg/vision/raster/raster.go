// Package raster 提供与图像库无关的像素网格类型
//
// Raster 在创建后不可修改，三通道数据按 BGR 顺序存储，
// 与 OpenCV 解码文件得到的像素顺序一致。
package raster

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ErrEmpty 空图像
var ErrEmpty = errors.New("图像为空")

// Raster 行优先存储的像素网格
type Raster struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// New 创建 Raster，校验缓冲区长度
func New(width, height, channels int, pix []byte) (*Raster, error) {
	if width <= 0 || height <= 0 || channels <= 0 {
		return nil, fmt.Errorf("无效的图像尺寸: %dx%dx%d", width, height, channels)
	}
	if len(pix) != width*height*channels {
		return nil, fmt.Errorf("像素缓冲区长度不匹配: 期望 %d, 实际 %d", width*height*channels, len(pix))
	}
	return &Raster{Width: width, Height: height, Channels: channels, Pix: pix}, nil
}

// Empty 判断是否为空图像（nil 也视为空）
func (r *Raster) Empty() bool {
	return r == nil || r.Width <= 0 || r.Height <= 0 || len(r.Pix) == 0
}

// Bounds 返回图像范围
func (r *Raster) Bounds() image.Rectangle {
	if r == nil {
		return image.Rectangle{}
	}
	return image.Rect(0, 0, r.Width, r.Height)
}

// Stride 每行字节数
func (r *Raster) Stride() int {
	return r.Width * r.Channels
}

// Fits 判断 r 能否完整放入 outer
func (r *Raster) Fits(outer *Raster) bool {
	if r.Empty() || outer.Empty() {
		return false
	}
	return r.Width <= outer.Width && r.Height <= outer.Height
}

// Clone 深拷贝
func (r *Raster) Clone() *Raster {
	if r == nil {
		return nil
	}
	pix := make([]byte, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Width: r.Width, Height: r.Height, Channels: r.Channels, Pix: pix}
}

// SubRaster 复制 rect 区域为新的 Raster
func (r *Raster) SubRaster(rect image.Rectangle) (*Raster, error) {
	if r.Empty() {
		return nil, ErrEmpty
	}
	if rect.Empty() || !rect.In(r.Bounds()) {
		return nil, fmt.Errorf("区域 %v 超出图像范围 %v", rect, r.Bounds())
	}
	w, h := rect.Dx(), rect.Dy()
	pix := make([]byte, 0, w*h*r.Channels)
	stride := r.Stride()
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		start := y*stride + rect.Min.X*r.Channels
		pix = append(pix, r.Pix[start:start+w*r.Channels]...)
	}
	return &Raster{Width: w, Height: h, Channels: r.Channels, Pix: pix}, nil
}

// FromImage 将 image.Image 转换为三通道 BGR Raster
func FromImage(img image.Image) (*Raster, error) {
	if img == nil {
		return nil, ErrEmpty
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmpty
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	w, h := b.Dx(), b.Dy()
	pix := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		dst := pix[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			dst[x*3+0] = src[x*4+2]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+0]
		}
	}
	return &Raster{Width: w, Height: h, Channels: 3, Pix: pix}, nil
}

// FromBGRX 将 4 字节/像素的 BGRX (或 BGRA) 缓冲区转换为 BGR Raster
// X11 ZPixmap 与 Windows DIB 均为此布局
func FromBGRX(width, height, stride int, pix []byte) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("无效的图像尺寸: %dx%d", width, height)
	}
	if stride < width*4 || len(pix) < stride*(height-1)+width*4 {
		return nil, fmt.Errorf("像素缓冲区过小: stride=%d len=%d", stride, len(pix))
	}

	out := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		src := pix[y*stride : y*stride+width*4]
		dst := out[y*width*3 : (y+1)*width*3]
		for x := 0; x < width; x++ {
			dst[x*3+0] = src[x*4+0]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}
	return &Raster{Width: width, Height: height, Channels: 3, Pix: out}, nil
}
