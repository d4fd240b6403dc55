package friendsync

import (
	"context"
	"strings"
	"sync"
)

// FriendLister is the slice of the query service the list sync depends on.
type FriendLister interface {
	GetFriends(ctx context.Context, userIdentity string) ([]string, error)
}

// NameResolver resolves a friend identifier to a display name.
type NameResolver interface {
	GetName(ctx context.Context, id string) (string, error)
}

// Service combines the operations ListSync uses. *QueryService satisfies it.
type Service interface {
	FriendLister
	NameResolver
}

// ListSync owns the current friend list and mediates refreshes against the
// backend. At most one fetch is in flight at a time: a newer Refresh cancels
// and supersedes an older one, and only the newest request may commit. A
// failed refresh leaves the previously committed list untouched.
type ListSync struct {
	svc      Service
	onUpdate func([]string)

	mu     sync.Mutex
	list   []string
	gen    uint64
	cancel context.CancelFunc
}

// NewListSync constructs a sync component with an empty list. onUpdate, if
// non-nil, is invoked with a snapshot after every successful commit.
func NewListSync(svc Service, onUpdate func([]string)) *ListSync {
	return &ListSync{svc: svc, onUpdate: onUpdate}
}

// Refresh fetches the friend list for userIdentity and, on success, replaces
// the stored list wholesale. If a prior refresh is still in flight it is
// cancelled; its caller observes ErrSuperseded. The returned slice is the
// committed snapshot.
func (s *ListSync) Refresh(ctx context.Context, userIdentity string) ([]string, error) {
	if strings.TrimSpace(userIdentity) == "" {
		return nil, ErrEmptyIdentity
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	list, err := s.svc.GetFriends(fetchCtx, userIdentity)
	cancel()

	s.mu.Lock()
	if gen != s.gen {
		// A newer refresh took over while this one was in flight. Its
		// result, success or failure, must not touch the committed list.
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	s.cancel = nil
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.list = append(s.list[:0:0], list...)
	snapshot := append([]string(nil), s.list...)
	notify := s.onUpdate
	s.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
	return snapshot, nil
}

// Current returns a snapshot of the most recently committed list. A fetch in
// flight has no effect on the returned value until it commits.
func (s *ListSync) Current() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.list...)
}

// Remove drops the first occurrence of id from the in-memory list. This is a
// purely local mutation with no backend call; see the delete semantics the
// presentation layer relies on for optimistic row removal.
func (s *ListSync) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, entry := range s.list {
		if entry == id {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return
		}
	}
}

// ResolveName looks up the display name for a single list entry. Lookups are
// independent and unordered; a result arriving after its row was removed or
// replaced is discarded with ErrStaleRow.
func (s *ListSync) ResolveName(ctx context.Context, id string) (string, error) {
	if s.svc == nil {
		return "", ErrResolverUnavailable
	}

	name, err := s.svc.GetName(ctx, id)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.list {
		if entry == id {
			return name, nil
		}
	}
	return "", ErrStaleRow
}
