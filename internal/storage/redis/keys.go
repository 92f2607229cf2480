package redis

import (
	"fmt"

	"github.com/jortega/partidasync/internal/model"
)

// Key prefix for all lobby-related data
const keyPrefix = "psync"

// gameKey returns the Redis key for a GameRecord
func gameKey(code model.GameCode) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, code)
}

// statusIndexKey returns the Redis key for the SET of game codes in a status
func statusIndexKey(status model.GameStatus) string {
	return fmt.Sprintf("%s:idx:status:%s", keyPrefix, status)
}

// membershipKey returns the Redis key for a Membership
func membershipKey(code model.GameCode, userID model.UserID) string {
	return fmt.Sprintf("%s:membership:%s:%d", keyPrefix, code, userID)
}

// membersIndexKey returns the Redis key for the SET of user ids in a game
func membersIndexKey(code model.GameCode) string {
	return fmt.Sprintf("%s:idx:members:%s", keyPrefix, code)
}

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%d", keyPrefix, id)
}
