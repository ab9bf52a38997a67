// Package input 提供窗口内的鼠标点击
package input

import (
	"fmt"
	"strings"

	"github.com/go-vgo/robotgo"
)

// Button 鼠标按键
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonCenter Button = "center"
)

// ParseButton 解析按键名称，空字符串为左键
func ParseButton(s string) (Button, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left", "l":
		return ButtonLeft, nil
	case "right", "r":
		return ButtonRight, nil
	case "center", "middle", "m":
		return ButtonCenter, nil
	default:
		return "", fmt.Errorf("不支持的鼠标按键: %s", s)
	}
}

// MoveTo 移动鼠标到屏幕坐标
func MoveTo(x, y int) {
	robotgo.Move(x, y)
}

// Press 按下按键
func Press(b Button) error {
	return robotgo.Toggle(string(b))
}

// Release 松开按键
func Release(b Button) error {
	return robotgo.Toggle(string(b), "up")
}
