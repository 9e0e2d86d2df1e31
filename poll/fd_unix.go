//go:build linux || darwin

package poll

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// writeWakeFd signals an eventfd or the write end of a wake pipe.
// A full pipe (or saturated eventfd) is already readable, so EAGAIN is
// treated as success.
func writeWakeFd(fd int) error {
	// native endianness, as required by eventfd
	var one uint64 = 1
	buf := (*[8]byte)(unsafe.Pointer(&one))[:]

	_, err := unix.Write(fd, buf)
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

// drainWakeFd reads until the fd would block.
func drainWakeFd(fd int) {
	var buf [8]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if err != nil || n <= 0 {
			return
		}
	}
}
