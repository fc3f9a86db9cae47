package tool

import (
	"strconv"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

func GenerateTraceID() string {
	return uuid.New().String()
}

// ParseID parses a positive numeric record id. Zero, negative and malformed
// values report ok=false.
func ParseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
