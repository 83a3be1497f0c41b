// SPDX-License-Identifier: MPL-2.0

package dynlib

import "strings"

// cStrings holds NUL-terminated copies of a string slice plus the pointer
// array that indexes them. It must stay reachable for the whole native call.
type cStrings struct {
	bufs [][]byte
	ptrs []*byte
}

func newCStrings(args []string) *cStrings {
	cs := &cStrings{
		bufs: make([][]byte, len(args)),
		ptrs: make([]*byte, len(args)+1),
	}
	for i, a := range args {
		// Interior NULs would silently truncate the argument on the C side.
		a, _, _ = strings.Cut(a, "\x00")
		b := make([]byte, len(a)+1)
		copy(b, a)
		cs.bufs[i] = b
		cs.ptrs[i] = &b[0]
	}
	return cs
}

func (cs *cStrings) argc() int32 {
	return int32(len(cs.bufs))
}

// ptr returns argv. The array is NULL-terminated, like a C main's argv.
func (cs *cStrings) ptr() **byte {
	return &cs.ptrs[0]
}
