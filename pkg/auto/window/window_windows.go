//go:build windows

package window

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/zoeyai/zoeymatch/pkg/auto"
	"github.com/zoeyai/zoeymatch/pkg/vision/raster"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	gdi32  = windows.NewLazySystemDLL("gdi32.dll")

	procFindWindowW              = user32.NewProc("FindWindowW")
	procGetClientRect            = user32.NewProc("GetClientRect")
	procClientToScreen           = user32.NewProc("ClientToScreen")
	procGetDC                    = user32.NewProc("GetDC")
	procReleaseDC                = user32.NewProc("ReleaseDC")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procCreateCompatibleDC       = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap   = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject             = gdi32.NewProc("SelectObject")
	procBitBlt                   = gdi32.NewProc("BitBlt")
	procGetDIBits                = gdi32.NewProc("GetDIBits")
	procDeleteObject             = gdi32.NewProc("DeleteObject")
	procDeleteDC                 = gdi32.NewProc("DeleteDC")
)

const (
	srcCopy      = 0x00CC0020
	captureBlt   = 0x40000000
	biRGB        = 0
	dibRGBColors = 0
)

// RECT Windows 矩形结构
type RECT struct {
	Left, Top, Right, Bottom int32
}

type point struct {
	X, Y int32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

// findWindow 按标题精确查找顶层窗口
func findWindow(name string) (uintptr, error) {
	title, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, fmt.Errorf("无效的窗口名称 %q: %w", name, err)
	}
	hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(title)))
	if hwnd == 0 {
		return 0, notFound(name)
	}
	return hwnd, nil
}

func clientRect(hwnd uintptr) (RECT, error) {
	var rect RECT
	ret, _, err := procGetClientRect.Call(hwnd, uintptr(unsafe.Pointer(&rect)))
	if ret == 0 {
		return rect, fmt.Errorf("GetClientRect 失败: %w", err)
	}
	return rect, nil
}

func locateWindow(name string) (*Info, error) {
	hwnd, err := findWindow(name)
	if err != nil {
		return nil, err
	}
	rect, err := clientRect(hwnd)
	if err != nil {
		return nil, err
	}
	var origin point
	if ret, _, err := procClientToScreen.Call(hwnd, uintptr(unsafe.Pointer(&origin))); ret == 0 {
		return nil, fmt.Errorf("ClientToScreen 失败: %w", err)
	}
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))

	return &Info{
		Handle: uint64(hwnd),
		Title:  name,
		PID:    int(pid),
		Bounds: auto.Region{
			X:      int(origin.X),
			Y:      int(origin.Y),
			Width:  int(rect.Right - rect.Left),
			Height: int(rect.Bottom - rect.Top),
		},
	}, nil
}

// captureWindow 将窗口客户区 BitBlt 到兼容位图并读取 32 位自上而下 DIB
func captureWindow(name string, width, height int) (*raster.Raster, error) {
	hwnd, err := findWindow(name)
	if err != nil {
		return nil, err
	}
	rect, err := clientRect(hwnd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	w, h := clipSize(width, height, int(rect.Right-rect.Left), int(rect.Bottom-rect.Top))
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: 窗口尺寸为 0: %s", ErrCaptureFailed, name)
	}

	hdcWindow, _, _ := procGetDC.Call(hwnd)
	if hdcWindow == 0 {
		return nil, fmt.Errorf("%w: GetDC 失败", ErrCaptureFailed)
	}
	defer procReleaseDC.Call(hwnd, hdcWindow)

	hdcMem, _, _ := procCreateCompatibleDC.Call(hdcWindow)
	if hdcMem == 0 {
		return nil, fmt.Errorf("%w: CreateCompatibleDC 失败", ErrCaptureFailed)
	}
	defer procDeleteDC.Call(hdcMem)

	bitmap, _, _ := procCreateCompatibleBitmap.Call(hdcWindow, uintptr(w), uintptr(h))
	if bitmap == 0 {
		return nil, fmt.Errorf("%w: CreateCompatibleBitmap 失败", ErrCaptureFailed)
	}
	defer procDeleteObject.Call(bitmap)

	old, _, _ := procSelectObject.Call(hdcMem, bitmap)
	defer procSelectObject.Call(hdcMem, old)

	ret, _, callErr := procBitBlt.Call(hdcMem, 0, 0, uintptr(w), uintptr(h), hdcWindow, 0, 0, srcCopy|captureBlt)
	if ret == 0 {
		return nil, fmt.Errorf("%w: BitBlt 失败: %w", ErrCaptureFailed, callErr)
	}

	header := bitmapInfoHeader{
		Width:       int32(w),
		Height:      -int32(h),
		Planes:      1,
		BitCount:    32,
		Compression: biRGB,
	}
	header.Size = uint32(unsafe.Sizeof(header))

	pix := make([]byte, w*h*4)
	lines, _, _ := procGetDIBits.Call(hdcMem, bitmap, 0, uintptr(h),
		uintptr(unsafe.Pointer(&pix[0])), uintptr(unsafe.Pointer(&header)), dibRGBColors)
	if int(lines) != h {
		return nil, fmt.Errorf("%w: GetDIBits 读取 %d/%d 行", ErrCaptureFailed, lines, h)
	}
	return raster.FromBGRX(w, h, w*4, pix)
}
