package history

import (
	"fmt"
	"strings"
)

// Session identifies one conversation thread. Both ids are required and
// together form the storage namespace: distinct (UserID, SessionID) pairs
// never observe each other's records.
type Session struct {
	UserID    string
	SessionID string
}

func (s Session) Validate() error {
	if s.UserID == "" || s.SessionID == "" {
		return fmt.Errorf("%w: user_id and session_id are required", ErrInvalidSession)
	}
	for _, id := range []string{s.UserID, s.SessionID} {
		if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
			return fmt.Errorf("%w: id %q contains path characters", ErrInvalidSession, id)
		}
	}
	return nil
}

// Key is the namespace key both backends derive their physical location
// from. Ids are percent-escaped so the mapping is injective: without it,
// ("a_b", "c") and ("a", "b_c") would share one key.
func (s Session) Key() string {
	return escapeID(s.UserID) + "_" + escapeID(s.SessionID)
}

func escapeID(id string) string {
	id = strings.ReplaceAll(id, "%", "%25")
	return strings.ReplaceAll(id, "_", "%5F")
}
