// Package statx translates the supervisor's internal ExtendedStat (the
// statx-shaped result every Backend produces) into the legacy stat(2)
// layout guests expect, per spec.md §6: device, inode, mode, nlink,
// uid/gid, rdev, size, blksize, blocks, and a/m/c times with nanoseconds.
package statx

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nestybox/guestsup/internal/domain"
)

// Translate maps an ExtendedStat onto unix.Stat_t, the legacy ABI layout.
func Translate(st *domain.ExtendedStat) unix.Stat_t {
	return unix.Stat_t{
		Dev:     st.Dev,
		Ino:     st.Ino,
		Mode:    st.Mode,
		Nlink:   uint64(st.Nlink),
		Uid:     st.Uid,
		Gid:     st.Gid,
		Rdev:    st.Rdev,
		Size:    st.Size,
		Blksize: st.Blksize,
		Blocks:  st.Blocks,
		Atim:    st.Atime,
		Mtim:    st.Mtime,
		Ctim:    st.Ctime,
	}
}

// Bytes serializes a unix.Stat_t into its raw in-memory byte layout, the
// form the fstat/fstatat handlers write into guest memory via the bridge.
// This relies on the host and guest sharing the same stat_t layout, true
// for same-arch guest/host pairs, which is this supervisor's only
// supported configuration.
func Bytes(st unix.Stat_t) []byte {
	size := int(unsafe.Sizeof(st))
	buf := make([]byte, size)
	copy(buf, (*[1 << 20]byte)(unsafe.Pointer(&st))[:size:size])
	return buf
}
