package input

import (
	"fmt"
	"time"

	"github.com/zoeyai/zoeymatch/pkg/auto"
	"github.com/zoeyai/zoeymatch/pkg/auto/window"
)

// DefaultHold 按下与松开之间的默认间隔
const DefaultHold = 500 * time.Millisecond

// Locator 查找窗口客户区位置
type Locator func(name string) (*window.Info, error)

// Clicker 在窗口内点击
type Clicker struct {
	locate Locator
	move   func(x, y int)
	press  func(Button) error
	// release 按下成功后总会调用
	release func(Button) error
}

// NewClicker 创建使用系统鼠标的 Clicker
func NewClicker() *Clicker {
	return &Clicker{
		locate:  window.Locate,
		move:    MoveTo,
		press:   Press,
		release: Release,
	}
}

// ClickInWindow 点击窗口客户区内的相对坐标，按下后保持 hold 再松开
// hold <= 0 时使用 DefaultHold
func (c *Clicker) ClickInWindow(name string, x, y int, button Button, hold time.Duration) error {
	info, err := c.locate(name)
	if err != nil {
		return err
	}
	if x < 0 || y < 0 || (!info.Bounds.Empty() && (x >= info.Bounds.Width || y >= info.Bounds.Height)) {
		return fmt.Errorf("坐标 (%d, %d) 超出窗口 %q 客户区 %dx%d",
			x, y, info.Title, info.Bounds.Width, info.Bounds.Height)
	}
	if hold <= 0 {
		hold = DefaultHold
	}

	p := info.Bounds.Offset(x, y)
	c.move(p.X, p.Y)
	if err := c.press(button); err != nil {
		return fmt.Errorf("按下 %s 键失败: %w", button, err)
	}
	auto.Sleep(hold)
	if err := c.release(button); err != nil {
		return fmt.Errorf("松开 %s 键失败: %w", button, err)
	}
	return nil
}

// ClickInWindow 使用系统鼠标点击窗口内坐标
func ClickInWindow(name string, x, y int, button Button, hold time.Duration) error {
	return NewClicker().ClickInWindow(name, x, y, button, hold)
}

// LeftClickInWindow 左键点击
func LeftClickInWindow(name string, x, y int) error {
	return ClickInWindow(name, x, y, ButtonLeft, DefaultHold)
}

// RightClickInWindow 右键点击
func RightClickInWindow(name string, x, y int) error {
	return ClickInWindow(name, x, y, ButtonRight, DefaultHold)
}
