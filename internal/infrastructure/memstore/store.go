// Package memstore keeps conversations in process memory. It backs STORE_DRIVER=memory, the
// local terminal mode and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

type record struct {
	conv     conversation.Conversation
	messages []conversation.Message
	seen     map[string]struct{}
}

// Store implements conversation.Store.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	now     func() time.Time
}

func New() *Store {
	return &Store{
		records: make(map[string]*record),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Create(ctx context.Context, conv *conversation.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[conv.ID]; exists {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict, "conversation already exists", nil, "5396c983-82cd-42b0-9b89-32bd302aa26e")
	}
	stored := *conv
	stored.Messages = nil
	s.records[conv.ID] = &record{conv: stored, seen: make(map[string]struct{})}
	return nil
}

func (s *Store) Get(ctx context.Context, owner identity.UserID, id string) (*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.lookup(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	out := rec.conv
	out.Messages = append([]conversation.Message(nil), rec.messages...)
	return &out, nil
}

func (s *Store) List(_ context.Context, owner identity.UserID) ([]*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*conversation.Conversation, 0)
	for _, rec := range s.records {
		if rec.conv.UserID != owner {
			continue
		}
		conv := rec.conv
		out = append(out, &conv)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *Store) AppendMessage(ctx context.Context, owner identity.UserID, id string, msg *conversation.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(ctx, owner, id)
	if err != nil {
		return false, err
	}
	if _, dup := rec.seen[msg.ID]; dup {
		for _, existing := range rec.messages {
			if existing.ID == msg.ID {
				msg.Sequence = existing.Sequence
				break
			}
		}
		return false, nil
	}

	msg.Sequence = len(rec.messages) + 1
	rec.messages = append(rec.messages, *msg)
	rec.seen[msg.ID] = struct{}{}
	rec.conv.MessageCount = len(rec.messages)
	rec.conv.UpdatedAt = s.touch(rec.conv.UpdatedAt)
	return true, nil
}

func (s *Store) UpdateTitle(ctx context.Context, owner identity.UserID, id string, change conversation.TitleChange) (*conversation.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(ctx, owner, id)
	if err != nil {
		return nil, false, err
	}

	applied := false
	switch change.Source {
	case conversation.TitleSourceUser:
		rec.conv.Title = change.Title
		rec.conv.TitleLocked = true
		applied = true
	case conversation.TitleSourceSynthesized:
		if rec.conv.AcceptsSynthesizedTitle() {
			rec.conv.Title = change.Title
			rec.conv.TitleFinalized = true
			applied = true
		}
	default:
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeValidation, "unknown title source", nil, "73f692b6-e1e1-4f55-bfc8-ef370db31766")
	}
	if applied {
		rec.conv.Version++
		rec.conv.UpdatedAt = s.touch(rec.conv.UpdatedAt)
	}

	out := rec.conv
	return &out, applied, nil
}

func (s *Store) UpdateModel(ctx context.Context, owner identity.UserID, id string, provider string, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(ctx, owner, id)
	if err != nil {
		return err
	}
	rec.conv.Provider = provider
	rec.conv.Model = model
	rec.conv.UpdatedAt = s.touch(rec.conv.UpdatedAt)
	return nil
}

func (s *Store) Delete(ctx context.Context, owner identity.UserID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(ctx, owner, id); err != nil {
		return err
	}
	delete(s.records, id)
	return nil
}

// lookup must be called with s.mu held.
func (s *Store) lookup(ctx context.Context, owner identity.UserID, id string) (*record, error) {
	rec, ok := s.records[id]
	if !ok || rec.conv.UserID != owner {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "be0c7d31-15ca-48b7-b2b1-89d89a4438ef")
	}
	return rec, nil
}

// touch returns a timestamp strictly after prev so recency ordering stays stable on coarse clocks.
func (s *Store) touch(prev time.Time) time.Time {
	now := s.now()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}
