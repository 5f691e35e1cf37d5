package codec

import "unsafe"

// bytesToString borrows b's backing array as a string with no copy. Used
// only in zero-copy decode mode; the caller's buffer-lifetime contract
// (the spec's "buffer must outlive all emitted records") makes this sound.
func bytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}
