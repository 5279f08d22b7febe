package repositories

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"conversation-service/internal/models"
)

// MaxVisibleMessages caps a single message listing.
const MaxVisibleMessages = 2000

// PairKey is the canonical key of the unordered pair {a, b}. Ids are sorted and
// length-prefixed, so distinct pairs never share a key whatever the ids contain.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%s|%d:%s", len(a), a, len(b), b)
}

func validateDirect(userID, partnerID string) error {
	if strings.TrimSpace(userID) == "" {
		return invalidArgument("user id is required")
	}
	if strings.TrimSpace(partnerID) == "" {
		return invalidArgument("partner id is required")
	}
	if userID == partnerID {
		return invalidArgument("cannot start a conversation with yourself")
	}
	return nil
}

// groupParticipants dedupes the requested ids keeping first-seen order and adds
// the creator when missing. At least two distinct ids must have been requested.
func groupParticipants(creatorID string, participantIDs []string) ([]string, error) {
	seen := make(map[string]struct{}, len(participantIDs)+1)
	ids := make([]string, 0, len(participantIDs)+1)
	for _, id := range participantIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) < 2 {
		return nil, invalidArgument("a group needs at least 2 distinct participants")
	}
	if creatorID != "" {
		if _, ok := seen[creatorID]; !ok {
			ids = append([]string{creatorID}, ids...)
		}
	}
	return ids, nil
}

func groupName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return models.DefaultGroupName
	}
	return name
}

// validID filters malformed conversation ids before they reach storage, where
// they would surface as driver errors instead of "not found".
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
