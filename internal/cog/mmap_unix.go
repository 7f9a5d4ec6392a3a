//go:build unix

package cog

import (
	"os"
	"syscall"
)

// mapFile memory-maps f read-only. f may be closed afterwards.
func mapFile(f *os.File, size int) ([]byte, error) {
	return syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ, syscall.MAP_PRIVATE)
}

func unmapFile(data []byte) error {
	return syscall.Munmap(data)
}
