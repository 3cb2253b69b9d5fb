//go:build linux

package watcher

import (
	"golang.org/x/sys/unix"
)

// filesystems where inotify does not see changes made by other hosts
var networkFSMagic = map[uint32]string{
	0x6969:     "nfs",
	0x517b:     "smb",
	0xff534d42: "cifs",
	0xfe534d42: "smb2",
	0x01021997: "9p", // also WSL drvfs
	0x564c:     "ncp",
	0x6b414653: "afs",
}

// networkFS returns the name of the network filesystem path is on,
// or an empty string.
func networkFS(path string) string {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return ""
	}
	return networkFSMagic[uint32(st.Type)] //nolint:gosec
}
