package auto

import "strings"

// PermissionStatus 权限状态
type PermissionStatus struct {
	// Accessibility 辅助功能，模拟鼠标点击需要
	Accessibility bool `json:"accessibility"`
	// ScreenRecording 屏幕录制，窗口截图需要
	ScreenRecording bool `json:"screen_recording"`
	AllGranted      bool `json:"all_granted"`
}

func newPermissionStatus(accessibility, screenRecording bool) *PermissionStatus {
	return &PermissionStatus{
		Accessibility:   accessibility,
		ScreenRecording: screenRecording,
		AllGranted:      accessibility && screenRecording,
	}
}

// Instructions 缺少权限时的说明，全部授权时为空
func (s *PermissionStatus) Instructions() string {
	if s.AllGranted {
		return ""
	}

	var b strings.Builder
	b.WriteString("需要授权以下权限才能正常工作:\n")
	if !s.ScreenRecording {
		b.WriteString("  - 屏幕录制 (用于窗口截图): 系统设置 > 隐私与安全性 > 屏幕录制\n")
	}
	if !s.Accessibility {
		b.WriteString("  - 辅助功能 (用于鼠标点击): 系统设置 > 隐私与安全性 > 辅助功能\n")
	}
	b.WriteString("授权后需要重启应用才能生效。")
	return b.String()
}
