package images

import (
	"crypto/md5"
	"fmt"
)

// Checksum generates a deterministic checksum for a frame's pixels.
//
// Arguments:
// - f: The frame to compute checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string.
//
// Example:
//
// ```go
//
//	checksum := Checksum(frame)
//	fmt.Printf("Frame checksum: %s\n", checksum)
//
// ```
func Checksum(f Frame) string {
	if f.Empty() {
		return "empty"
	}

	hash := md5.New()
	hash.Write(f.Data)
	return fmt.Sprintf("%x", hash.Sum(nil))
}
