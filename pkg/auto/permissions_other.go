//go:build !darwin

package auto

// CheckPermissions 非 macOS 系统不需要额外授权
func CheckPermissions() *PermissionStatus {
	return newPermissionStatus(true, true)
}
