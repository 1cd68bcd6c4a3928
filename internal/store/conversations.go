// Package store holds the in-memory conversation queue of an agent session.
package store

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/message-whisperer/agent-console/internal/model"
	"github.com/message-whisperer/agent-console/pkg/logger"
)

// DefaultPageSize is used when the configured page size is not positive.
const DefaultPageSize = 30

// ErrNotFound is returned for ids that are not in the visible list.
var ErrNotFound = errors.New("conversation not found")

// Fetcher loads pages of conversation summaries from the backend.
type Fetcher interface {
	ListConversations(ctx context.Context, cursor string, limit int, filter model.Filter) (*model.ListConversationsResponse, error)
}

// State is a point-in-time copy of the store, safe to hand to callers.
type State struct {
	Conversations []model.ConversationSummary `json:"conversations"`
	Filter        model.Filter                `json:"filter"`
	NextCursor    string                      `json:"next_cursor,omitempty"`
	HasMore       bool                        `json:"has_more"`
	Loading       bool                        `json:"loading"`
	LoadingMore   bool                        `json:"loading_more"`
	Error         string                      `json:"error,omitempty"`
	SelectedID    string                      `json:"selected_id,omitempty"`
}

// ConversationStore is the ordered list of conversation summaries for the
// active filter and business. Every method is safe for concurrent use; each
// state change happens under one lock acquisition.
type ConversationStore struct {
	fetcher  Fetcher
	pageSize int
	logger   *logger.Logger

	mu          sync.RWMutex
	items       []*model.ConversationSummary
	filter      model.Filter
	nextCursor  string
	loading     bool
	loadingMore bool
	err         error
	selectedID  string

	// generation changes whenever the list is replaced or reset. Responses
	// captured under an older generation are dropped.
	generation uint64
}

// NewConversationStore creates an empty store.
func NewConversationStore(fetcher Fetcher, pageSize int, filter model.Filter, log *logger.Logger) *ConversationStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if filter == "" {
		filter = model.FilterAll
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ConversationStore{
		fetcher:  fetcher,
		pageSize: pageSize,
		filter:   filter,
		logger:   log,
	}
}

// Filter returns the active filter.
func (s *ConversationStore) Filter() model.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// FetchInitial replaces the list with the first page for filter. Changing
// the filter clears the list, cursor and selection up front. On failure the
// error flag is set and nothing is retried; a refresh of the same filter
// keeps the previous list. A selection missing from the new page is cleared.
func (s *ConversationStore) FetchInitial(ctx context.Context, filter model.Filter) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	if filter != s.filter {
		s.filter = filter
		s.selectedID = ""
		s.items = s.items[:0]
		s.nextCursor = ""
	}
	s.loading = true
	s.mu.Unlock()

	resp, err := s.fetcher.ListConversations(ctx, "", s.pageSize, filter)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.Debug("discarding stale conversation page", zap.Uint64("generation", gen))
		return nil
	}
	s.loading = false

	if err != nil {
		s.err = err
		s.logger.Warn("failed to fetch conversations", zap.String("filter", string(filter)), zap.Error(err))
		return err
	}

	s.err = nil
	s.items = s.items[:0]
	for i := range resp.Conversations {
		c := resp.Conversations[i]
		if !filter.Includes(&c) {
			continue
		}
		s.items = append(s.items, c.Clone())
	}
	s.nextCursor = cursorValue(resp.NextCursor)
	if s.selectedID != "" && s.indexOf(s.selectedID) < 0 {
		s.selectedID = ""
	}
	return nil
}

// LoadMore appends the next page. It does nothing, and sends no request,
// when there is no cursor or a load is already in flight.
func (s *ConversationStore) LoadMore(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.nextCursor == "" || s.loadingMore || s.loading {
		s.mu.Unlock()
		return false, nil
	}
	s.loadingMore = true
	gen, cursor, filter := s.generation, s.nextCursor, s.filter
	s.mu.Unlock()

	resp, err := s.fetcher.ListConversations(ctx, cursor, s.pageSize, filter)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadingMore = false

	if gen != s.generation {
		s.logger.Debug("discarding stale conversation page", zap.Uint64("generation", gen))
		return false, nil
	}

	if err != nil {
		s.err = err
		s.logger.Warn("failed to load more conversations", zap.String("cursor", cursor), zap.Error(err))
		return false, err
	}

	s.err = nil
	for i := range resp.Conversations {
		c := resp.Conversations[i]
		if !filter.Includes(&c) || s.indexOf(c.ID) >= 0 {
			continue
		}
		s.items = append(s.items, c.Clone())
	}
	s.nextCursor = cursorValue(resp.NextCursor)
	return true, nil
}

// Reset drops the list and the selection, e.g. on a business switch, and
// invalidates in-flight page requests.
func (s *ConversationStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.items = nil
	s.nextCursor = ""
	s.loading = false
	s.loadingMore = false
	s.err = nil
	s.selectedID = ""
}

// ApplyOptimisticPatch merges patch into the summary with the given id. It
// never reorders the list or touches other entries. The returned inverse
// restores the previous values of the changed fields.
func (s *ConversationStore) ApplyOptimisticPatch(id string, patch model.ConversationPatch) (model.ConversationPatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.ConversationPatch{}, ErrNotFound
	}
	return s.items[i].Apply(patch), nil
}

// Revert undoes an optimistic patch. Fields that were changed again after
// applied was written keep their newer value.
func (s *ConversationStore) Revert(id string, applied, inverse model.ConversationPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.items[i].Revert(applied, inverse)
	return true
}

// Removal records where a summary was removed from, so it can be restored.
type Removal struct {
	Summary      *model.ConversationSummary
	Index        int
	PrevSelected string
	NextSelected string
}

// RemoveAndSelectNext removes id from the list. If id was selected, or
// nothing was, the entry that followed it becomes selected, wrapping to the
// first entry; removing the only entry leaves no selection.
func (s *ConversationStore) RemoveAndSelectNext(id string) (*Removal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}

	removed := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)

	r := &Removal{
		Summary:      removed.Clone(),
		Index:        i,
		PrevSelected: s.selectedID,
	}
	if s.selectedID == id || s.selectedID == "" {
		if len(s.items) == 0 {
			s.selectedID = ""
		} else {
			s.selectedID = s.items[i%len(s.items)].ID
		}
	}
	r.NextSelected = s.selectedID
	return r, nil
}

// Restore puts a removed summary back where it was, unless it reappeared in
// the meantime. The selection moves back only if nobody changed it since.
func (s *ConversationStore) Restore(r *Removal) {
	if r == nil || r.Summary == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(r.Summary.ID) < 0 {
		idx := r.Index
		if idx > len(s.items) {
			idx = len(s.items)
		}
		s.items = append(s.items, nil)
		copy(s.items[idx+1:], s.items[idx:])
		s.items[idx] = r.Summary.Clone()
	}
	if s.selectedID == r.NextSelected {
		s.selectedID = r.PrevSelected
	}
}

// Get returns a copy of the summary with the given id.
func (s *ConversationStore) Get(id string) (*model.ConversationSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return s.items[i].Clone(), true
}

// Select marks id as the open conversation.
func (s *ConversationStore) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return ErrNotFound
	}
	s.selectedID = id
	return nil
}

// ClearSelection deselects the open conversation.
func (s *ConversationStore) ClearSelection() {
	s.mu.Lock()
	s.selectedID = ""
	s.mu.Unlock()
}

// Selected returns the id of the open conversation, or "".
func (s *ConversationStore) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// Err returns the error of the last failed fetch, cleared by a success.
func (s *ConversationStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Len returns the number of visible conversations.
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot copies the current state.
func (s *ConversationStore) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := State{
		Conversations: make([]model.ConversationSummary, len(s.items)),
		Filter:        s.filter,
		NextCursor:    s.nextCursor,
		HasMore:       s.nextCursor != "",
		Loading:       s.loading,
		LoadingMore:   s.loadingMore,
		SelectedID:    s.selectedID,
	}
	for i, c := range s.items {
		out.Conversations[i] = *c.Clone()
	}
	if s.err != nil {
		out.Error = s.err.Error()
	}
	return out
}

func (s *ConversationStore) indexOf(id string) int {
	for i, c := range s.items {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func cursorValue(c *string) string {
	if c == nil {
		return ""
	}
	return *c
}
