package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/semcs/ck/internal/core"
)

// Manager owns the in-memory session map. Writers are serialized through a
// read-write lock; read-only paging takes the write lock only to bump the
// access time and recency order.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*SearchSession
	// recency tracks access order for LRU eviction, oldest first.
	recency []uuid.UUID
	ttl     time.Duration
	max     int
}

// NewManager creates a Manager with the given idle TTL (0 = DefaultTTL).
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions: make(map[uuid.UUID]*SearchSession),
		ttl:      ttl,
		max:      MaxSessions,
	}
}

// CreateSession caches a completed result set and returns the first page.
func (m *Manager) CreateSession(opts core.SearchOptions, results []core.SearchResult, cfg Config) (*Page, error) {
	cfg = cfg.Validate()

	sess := &SearchSession{
		ID:               uuid.New(),
		SearchOptions:    opts,
		Results:          results,
		CreatedAt:        time.Now(),
		LastAccessed:     time.Now(),
		TotalCount:       len(results),
		SearchParamsHash: HashSearchOptions(opts),
	}

	m.mu.Lock()
	if len(m.sessions) >= m.max {
		m.evictOldestLocked()
	}
	m.sessions[sess.ID] = sess
	m.recency = append(m.recency, sess.ID)
	m.mu.Unlock()

	return m.page(sess, 0, cfg.PageSize, cfg)
}

// GetPageByCursor validates a cursor and returns the page it points at.
// Subsequent pages use the original_page_size recorded in the cursor, so a
// single iteration yields stable-sized pages.
func (m *Manager) GetPageByCursor(cursorStr string, cfg Config) (*Page, error) {
	cursor, err := DecodeCursor(cursorStr)
	if err != nil {
		return nil, err
	}

	if cursor.Version != CursorVersion {
		return nil, fmt.Errorf("unsupported cursor version %d", cursor.Version)
	}
	if time.Since(time.Unix(cursor.Timestamp, 0)) > m.ttl {
		return nil, fmt.Errorf("cursor has expired")
	}

	m.mu.Lock()
	sess, ok := m.sessions[cursor.SessionID]
	if ok && m.expiredLocked(sess) {
		m.removeLocked(cursor.SessionID)
		ok = false
	}
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("session not found or expired")
	}
	if sess.SearchParamsHash != cursor.SearchParamsHash {
		m.mu.Unlock()
		return nil, fmt.Errorf("search parameters changed; cursor is no longer valid")
	}
	sess.LastAccessed = time.Now()
	m.touchLocked(cursor.SessionID)
	m.mu.Unlock()

	cfg = cfg.Validate()
	return m.page(sess, cursor.Offset, cursor.OriginalPageSize, cfg)
}

// page slices one page and builds the next cursor.
func (m *Manager) page(sess *SearchSession, offset, pageSize int, cfg Config) (*Page, error) {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	total := len(sess.Results)
	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}

	matches := make([]core.SearchResult, end-offset)
	copy(matches, sess.Results[offset:end])

	truncated := false
	for i := range matches {
		if !cfg.IncludeSnippet {
			matches[i].Preview = SnippetOmitted
			continue
		}
		if cfg.SnippetLength > 0 && len(matches[i].Preview) > cfg.SnippetLength {
			matches[i].Preview = matches[i].Preview[:cfg.SnippetLength]
			truncated = true
		}
	}

	hasMore := end < total
	nextCursor := ""
	if hasMore {
		cursor := PaginationCursor{
			SessionID:        sess.ID,
			Offset:           end,
			SearchParamsHash: sess.SearchParamsHash,
			Timestamp:        time.Now().Unix(),
			Version:          CursorVersion,
			OriginalPageSize: pageSize,
		}
		encoded, err := cursor.Encode()
		if err != nil {
			return nil, err
		}
		nextCursor = encoded
	}

	return &Page{
		Matches:          matches,
		Count:            len(matches),
		TotalCount:       total,
		HasMore:          hasMore,
		Truncated:        truncated,
		NextCursor:       nextCursor,
		CurrentPage:      offset/pageSize + 1,
		OriginalPageSize: pageSize,
	}, nil
}

// CleanupExpired removes idle sessions; returns how many were dropped.
// Expired sessions are otherwise removed lazily on access.
func (m *Manager) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		if m.expiredLocked(sess) {
			m.removeLocked(id)
			removed++
		}
	}
	return removed
}

// Len returns the live session count.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) expiredLocked(sess *SearchSession) bool {
	return time.Since(sess.LastAccessed) > m.ttl
}

func (m *Manager) evictOldestLocked() {
	if len(m.recency) == 0 {
		return
	}
	oldest := m.recency[0]
	m.removeLocked(oldest)
}

func (m *Manager) removeLocked(id uuid.UUID) {
	delete(m.sessions, id)
	for i, rid := range m.recency {
		if rid == id {
			m.recency = append(m.recency[:i], m.recency[i+1:]...)
			break
		}
	}
}

func (m *Manager) touchLocked(id uuid.UUID) {
	for i, rid := range m.recency {
		if rid == id {
			m.recency = append(m.recency[:i], m.recency[i+1:]...)
			m.recency = append(m.recency, id)
			break
		}
	}
}
