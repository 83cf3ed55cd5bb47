//go:build unix

package pathsrc

import (
	"os"
	"syscall"
)

type devIno struct {
	dev, ino uint64
}

func fileID(fi os.FileInfo) (devIno, bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok || st.Nlink < 2 {
		return devIno{}, false
	}
	return devIno{dev: uint64(st.Dev), ino: uint64(st.Ino)}, true
}
