package bot

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// GenerateOrderID returns "ID" followed by a random number in 1000-9999.
// Uniqueness against the ledger is not checked.
func GenerateOrderID() string {
	return fmt.Sprintf("ID%d", 1000+rand.IntN(9000))
}

// containsAny reports whether s contains any of the keywords.
func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// uploadReference extracts the reference following "] " in an upload
// message; without it the whole message is the reference.
func uploadReference(raw string) string {
	if _, ref, ok := strings.Cut(raw, "] "); ok {
		return ref
	}
	return raw
}

func hasUploadMarker(lower string) bool {
	return strings.Contains(lower, uploadMarker)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
