//go:build !linux && !windows

package window

import (
	"fmt"
	"regexp"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/zoeymatch/pkg/auto"
	"github.com/zoeyai/zoeymatch/pkg/vision/raster"
)

// findPID 先按进程名查找，再按窗口标题正则匹配所有进程
func findPID(name string) (int, string, error) {
	re, err := NamePattern(name)
	if err != nil {
		return 0, "", err
	}

	if pids, err := robotgo.FindIds(name); err == nil {
		for _, pid := range pids {
			if title := robotgo.GetTitle(pid); title != "" {
				return pid, title, nil
			}
		}
	}

	procs, err := auto.GetProcesses()
	if err != nil {
		return 0, "", err
	}
	return searchProcesses(procs, re, name)
}

func searchProcesses(procs []auto.ProcessInfo, re *regexp.Regexp, name string) (int, string, error) {
	for _, p := range procs {
		if title, ok := matchTitle(re, robotgo.GetTitle(p.PID)); ok {
			return p.PID, title, nil
		}
	}
	return 0, "", notFound(name)
}

func locateWindow(name string) (*Info, error) {
	pid, title, err := findPID(name)
	if err != nil {
		return nil, err
	}
	x, y, w, h := robotgo.GetClient(pid)
	if w == 0 || h == 0 {
		x, y, w, h = robotgo.GetBounds(pid)
	}
	return &Info{
		Handle: uint64(pid),
		Title:  title,
		PID:    pid,
		Bounds: auto.Region{X: x, Y: y, Width: w, Height: h},
	}, nil
}

func captureWindow(name string, width, height int) (*raster.Raster, error) {
	info, err := locateWindow(name)
	if err != nil {
		return nil, err
	}
	if info.Bounds.Empty() {
		return nil, fmt.Errorf("%w: 无法获取窗口边界: PID=%d", ErrCaptureFailed, info.PID)
	}
	w, h := clipSize(width, height, info.Bounds.Width, info.Bounds.Height)

	img, err := robotgo.CaptureImg(info.Bounds.X, info.Bounds.Y, w, h)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	return raster.FromImage(img)
}
