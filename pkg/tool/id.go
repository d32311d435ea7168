package tool

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUIDV7 returns a time-ordered id, used as primary key for payments and drafts.
func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// InnerSessionID stands in for a checkout session id on operator grants,
// keeping the unique session index meaningful for rows without a processor.
func InnerSessionID() string {
	return innerSessionPrefix + GenerateUUIDV7()
}

const innerSessionPrefix = "inner_"

func IsInnerSessionID(id string) bool {
	return strings.HasPrefix(id, innerSessionPrefix)
}
