package earnings

import "unicode/utf16"

// AvatarPalette is the set of colours handed out to nicknames.
var AvatarPalette = []string{
	"#10b981", "#3b82f6", "#f59e0b", "#ef4444",
	"#8b5cf6", "#ec4899", "#14b8a6", "#f97316",
}

// AvatarColor picks a stable palette colour for nickname. The hash runs
// over UTF-16 code units with 32-bit shifts so every client agrees on it.
func AvatarColor(nickname string) string {
	var hash int64
	for _, unit := range utf16.Encode([]rune(nickname)) {
		shifted := int64(int32(uint32(int32(hash)) << 5))
		hash = int64(unit) + shifted - hash
	}
	if hash < 0 {
		hash = -hash
	}
	return AvatarPalette[hash%int64(len(AvatarPalette))]
}
