//go:build !unix

package pathsrc

import "os"

type devIno struct{}

func fileID(os.FileInfo) (devIno, bool) { return devIno{}, false }
