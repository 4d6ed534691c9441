package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

const (
	sessionKeyPrefix = "tablescan:mcp:session:"
	sessionTTL       = 30 * time.Minute
	maxRecentTables  = 20
	maxRecapTokens   = 500
)

// Session tracks an agent's remediation walk across MCP tool calls.
// Stored in Valkey with a 30-minute TTL, keyed by
// tablescan:mcp:session:{session_id}.
type Session struct {
	ID           string          `json:"id"`
	SeenIssues   map[string]bool `json:"seen_issues"`
	RecentTables []string        `json:"recent_tables"`
	Scans        int             `json:"scans"`
	Recap        []string        `json:"recap"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Manager handles loading and saving sessions to Valkey.
type Manager struct {
	client valkey.Client
}

// NewManager creates a session manager backed by the given Valkey client.
func NewManager(client valkey.Client) *Manager {
	return &Manager{client: client}
}

// Load retrieves a session from Valkey. If the session doesn't exist, a new one is created.
func (m *Manager) Load(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	key := sessionKeyPrefix + sessionID
	resp := m.client.Do(ctx, m.client.B().Get().Key(key).Build())
	data, err := resp.AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return newSession(sessionID), nil
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return newSession(sessionID), nil
	}
	return &s, nil
}

// Save persists a session to Valkey with a 30-minute TTL.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	key := sessionKeyPrefix + s.ID
	resp := m.client.Do(ctx, m.client.B().Set().Key(key).Value(string(data)).Ex(sessionTTL).Build())
	if err := resp.Error(); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		SeenIssues: make(map[string]bool),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkSeen records issue fingerprints already reported to the agent.
func (s *Session) MarkSeen(fingerprints ...string) {
	if s.SeenIssues == nil {
		s.SeenIssues = make(map[string]bool)
	}
	for _, fp := range fingerprints {
		s.SeenIssues[fp] = true
	}
}

// IsSeen returns true if the issue was previously reported in this session.
func (s *Session) IsSeen(fingerprint string) bool {
	return s.SeenIssues[fingerprint]
}

// SeenCount returns the number of distinct issues reported in this session.
func (s *Session) SeenCount() int {
	return len(s.SeenIssues)
}

// TouchTable moves table to the end of the recently looked-up list.
func (s *Session) TouchTable(table string) {
	table = strings.ToUpper(table)
	for i, t := range s.RecentTables {
		if t == table {
			s.RecentTables = append(s.RecentTables[:i], s.RecentTables[i+1:]...)
			break
		}
	}
	s.RecentTables = append(s.RecentTables, table)
	if len(s.RecentTables) > maxRecentTables {
		s.RecentTables = s.RecentTables[len(s.RecentTables)-maxRecentTables:]
	}
}

// AddRecap appends a one-line finding, dropping the oldest past the budget.
func (s *Session) AddRecap(finding string) {
	s.Recap = append(s.Recap, finding)
	for estimateTokens(s.Recap) > maxRecapTokens && len(s.Recap) > 1 {
		s.Recap = s.Recap[1:]
	}
}

// RecapText returns the recap as a numbered list.
func (s *Session) RecapText() string {
	if len(s.Recap) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range s.Recap {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, r)
	}
	return b.String()
}

func estimateTokens(lines []string) int {
	total := 0
	for _, l := range lines {
		total += len(l) / 4
	}
	return total
}
