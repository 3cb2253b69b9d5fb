//go:build !linux

package watcher

func networkFS(string) string {
	return ""
}
