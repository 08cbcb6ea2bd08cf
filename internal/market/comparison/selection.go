package comparison

import "sort"

// Membership answers whether an asset takes part in the comparison.
type Membership interface {
	IsSelected(id string) bool
}

// Selection is the set of asset ids included in the comparison view.
// It is not safe for concurrent use; the owner serializes access.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection returns a selection holding exactly ids.
func NewSelection(ids ...string) *Selection {
	s := &Selection{}
	s.Initialize(ids)
	return s
}

// Initialize replaces the membership wholesale.
func (s *Selection) Initialize(ids []string) {
	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// Toggle removes id when present and inserts it otherwise. It reports the
// resulting membership of id. Ids unknown to the current collection are
// accepted; they have no visible effect once filtered against it.
func (s *Selection) Toggle(id string) bool {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Selection) IsSelected(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// IDs returns the members in lexical order.
func (s *Selection) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Selection) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

func (s *Selection) Clone() *Selection {
	return NewSelection(s.IDs()...)
}

// Equal reports whether both selections hold the same ids.
func (s *Selection) Equal(o *Selection) bool {
	if s.Len() != o.Len() {
		return false
	}
	if s == nil {
		return true
	}
	for id := range s.ids {
		if !o.IsSelected(id) {
			return false
		}
	}
	return true
}
