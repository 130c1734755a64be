package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewFollowUpID mints a canonical follow-up id for a note under the given
// parent (an OrderID for order-level notes, a ProposalID for proposal-level
// ones). Format: F-<parent>-<first UUIDv4 segment>. Uniqueness is enforced
// per parent; there is no cross-parent coordination.
func NewFollowUpID(parentID string) string {
	return fmt.Sprintf("F-%s-%s", parentID, strings.SplitN(uuid.NewString(), "-", 2)[0])
}

// ValidWireID reports whether id may appear in a queue payload. '/' and '.'
// are reserved separators of the signal grammar.
func ValidWireID(id string) bool {
	return id != "" && !strings.ContainsAny(id, "/.")
}

// ValidFollowUpID reports whether id is a canonical follow-up id for parent.
func ValidFollowUpID(id, parentID string) bool {
	prefix := "F-" + parentID + "-"
	suffix, ok := strings.CutPrefix(id, prefix)
	if !ok || len(suffix) != 8 {
		return false
	}
	for _, r := range suffix {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
