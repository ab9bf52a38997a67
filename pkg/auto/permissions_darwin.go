//go:build darwin

package auto

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa -framework ApplicationServices -framework CoreGraphics
#import <Cocoa/Cocoa.h>
#import <ApplicationServices/ApplicationServices.h>
#import <CoreGraphics/CoreGraphics.h>

int hasAccessibility() {
    NSDictionary *options = @{(__bridge NSString *)kAXTrustedCheckOptionPrompt: @NO};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}

// 没有屏幕录制权限时其他进程的窗口名称不可见
int hasScreenRecording() {
    if (@available(macOS 10.15, *)) {
        CFArrayRef list = CGWindowListCopyWindowInfo(
            kCGWindowListOptionOnScreenOnly | kCGWindowListExcludeDesktopElements,
            kCGNullWindowID
        );
        if (list == NULL) {
            return 0;
        }
        CFIndex count = CFArrayGetCount(list);
        int named = 0;
        for (CFIndex i = 0; i < count && !named; i++) {
            CFDictionaryRef w = (CFDictionaryRef)CFArrayGetValueAtIndex(list, i);
            CFStringRef name = (CFStringRef)CFDictionaryGetValue(w, kCGWindowName);
            named = name != NULL && CFStringGetLength(name) > 0;
        }
        CFRelease(list);
        return (count == 0 || named) ? 1 : 0;
    }
    return 1;
}
*/
import "C"

// CheckPermissions 检查窗口截图与鼠标点击所需权限（不触发弹窗）
func CheckPermissions() *PermissionStatus {
	return newPermissionStatus(C.hasAccessibility() == 1, C.hasScreenRecording() == 1)
}
