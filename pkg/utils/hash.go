package utils

import (
	"crypto/md5"
	"fmt"
)

// HashString produces a stable hex key for cache lookups.
func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}
