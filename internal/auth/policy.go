package auth

import "strings"

// Operations a caller may be granted.
const (
	OpQuery  = "chatbot.query"
	OpIngest = "index.ingest"
)

// Policy decides what an already-authenticated caller may do. Identity
// validation happens upstream; this only maps caller ids to permissions.
type Policy struct {
	adminIDs   map[string]bool
	allowedIDs map[string]bool // empty means every caller may query
}

// NewPolicy parses comma-separated caller id lists from configuration.
func NewPolicy(adminIDsStr, allowedIDsStr string) *Policy {
	return &Policy{
		adminIDs:   parseIDList(adminIDsStr),
		allowedIDs: parseIDList(allowedIDsStr),
	}
}

func parseIDList(s string) map[string]bool {
	ids := make(map[string]bool)
	if s == "" {
		return ids
	}
	for _, id := range strings.Split(s, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			ids[id] = true
		}
	}
	return ids
}

// IsAdmin checks if a caller is an admin.
func (p *Policy) IsAdmin(callerID string) bool {
	return p.adminIDs[callerID]
}

// IsAllowed checks if a caller may use the service at all.
func (p *Policy) IsAllowed(callerID string) bool {
	if len(p.allowedIDs) == 0 {
		return true
	}
	if p.IsAdmin(callerID) {
		return true
	}
	return p.allowedIDs[callerID]
}

// IsOpAllowed checks if a caller may perform a specific operation.
func (p *Policy) IsOpAllowed(callerID, op string) bool {
	if p.IsAdmin(callerID) {
		return true
	}
	switch op {
	case OpQuery:
		return p.IsAllowed(callerID)
	case OpIngest:
		// Rewriting the index is reserved for admins.
		return false
	default:
		return false
	}
}
