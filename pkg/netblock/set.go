package netblock

import "encoding/json"

// OrderedSet is a set of strings that remembers insertion order.
// It serialises as a JSON array.
type OrderedSet struct {
	items []string
	index map[string]struct{}
}

// Add inserts v if it is not already present.
func (s *OrderedSet) Add(v string) {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[v]; ok {
		return
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
}

// Has reports whether v is in the set.
func (s *OrderedSet) Has(v string) bool {
	_, ok := s.index[v]
	return ok
}

// Len returns the number of members.
func (s *OrderedSet) Len() int { return len(s.items) }

// Values returns the members in insertion order.
func (s *OrderedSet) Values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// MarshalJSON implements json.Marshaler.
func (s OrderedSet) MarshalJSON() ([]byte, error) {
	if s.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *OrderedSet) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = OrderedSet{}
	for _, v := range items {
		s.Add(v)
	}
	return nil
}
