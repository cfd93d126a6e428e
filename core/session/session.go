package session

import "time"

// Status is the lifecycle state of a conversation.
type Status string

const (
	// StatusActive marks an in-progress conversation.
	StatusActive Status = "ACTIVE"
	// StatusCompleted marks a conversation that reached a terminal node.
	StatusCompleted Status = "COMPLETED"
	// StatusAbandoned marks a conversation ended by the caller or by the
	// retry limit.
	StatusAbandoned Status = "ABANDONED"
	// StatusExpired marks a conversation evicted after idling past the
	// configured timeout.
	StatusExpired Status = "EXPIRED"
)

// Field is one collected value. Fields keep visitation order, so they are a
// slice rather than a map.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// recentLimit caps the per-session list of recently viewed contacts.
const recentLimit = 5

// Session is the persisted state of one gateway dialog.
type Session struct {
	ID          string    `json:"id" db:"id"`
	CallerID    string    `json:"caller_id" db:"caller_id"`
	CurrentNode string    `json:"current_node" db:"current_node"`
	Fields      []Field   `json:"fields"`
	Page        int       `json:"page" db:"page"`
	Retries     int       `json:"retries" db:"retries"`
	Recent      []string  `json:"recent"`
	Status      Status    `json:"status" db:"status"`
	LastReply   string    `json:"last_reply" db:"last_reply"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	LastSeenAt  time.Time `json:"last_seen_at" db:"last_seen_at"`
}

// New constructs a fresh active session positioned at the tree root.
func New(id, caller, rootNode string, now time.Time) *Session {
	return &Session{
		ID:          id,
		CallerID:    caller,
		CurrentNode: rootNode,
		Status:      StatusActive,
		CreatedAt:   now,
		LastSeenAt:  now,
	}
}

// Field returns the collected value by name.
func (s *Session) Field(name string) (string, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// SetField stores a collected value, replacing an earlier capture of the
// same name in place so visitation order is preserved.
func (s *Session) SetField(name, value string) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			s.Fields[i].Value = value
			return
		}
	}
	s.Fields = append(s.Fields, Field{Name: name, Value: value})
}

// FieldNames returns the collected field names in visitation order.
func (s *Session) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// AddRecent records a viewed contact display, most recent first, deduplicated.
func (s *Session) AddRecent(display string) {
	if display == "" {
		return
	}
	out := make([]string, 0, len(s.Recent)+1)
	out = append(out, display)
	for _, r := range s.Recent {
		if r == display {
			continue
		}
		out = append(out, r)
	}
	if len(out) > recentLimit {
		out = out[:recentLimit]
	}
	s.Recent = out
}

// Touch refreshes the idle clock.
func (s *Session) Touch(now time.Time) {
	s.LastSeenAt = now
}

// IdleAt reports whether the session has idled past the timeout.
func (s *Session) IdleAt(now time.Time, timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	return now.Sub(s.LastSeenAt) > timeout
}

// Active reports whether the conversation may still advance.
func (s *Session) Active() bool {
	return s.Status == StatusActive
}

// Reset rewinds the session to a fresh conversation at the tree root,
// discarding collected fields so an expired attempt never leaks into the
// next one.
func (s *Session) Reset(rootNode string, now time.Time) {
	s.CurrentNode = rootNode
	s.Fields = nil
	s.Page = 0
	s.Retries = 0
	s.Recent = nil
	s.Status = StatusActive
	s.LastReply = ""
	s.CreatedAt = now
	s.LastSeenAt = now
}

// Clone returns a deep copy safe to hand across store boundaries.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	dup := *s
	dup.Fields = append([]Field(nil), s.Fields...)
	dup.Recent = append([]string(nil), s.Recent...)
	return &dup
}
