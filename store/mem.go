package store

// MemStore is an in-process Store backed by plain maps. It is the
// default for short-lived parses (the reference driver and most
// tests); BoltStore exists for callers that want the table to survive
// the process or outgrow memory.
type MemStore struct {
	byID       map[string]Record
	byType     map[string][]string // lower(type_name) -> ids, insertion order
	byCategory map[EntityType][]string
	order      []string
}

// NewMemStore returns a ready-to-use, empty MemStore.
func NewMemStore() *MemStore {
	s := &MemStore{}
	s.reset()
	return s
}

func (s *MemStore) reset() {
	s.byID = make(map[string]Record)
	s.byType = make(map[string][]string)
	s.byCategory = make(map[EntityType][]string)
	s.order = nil
}

func (s *MemStore) Append(r Record) error {
	if err := validate(r); err != nil {
		return err
	}
	if _, ok := s.byID[r.ID]; ok {
		return ErrDuplicateID
	}
	s.byID[r.ID] = r
	s.order = append(s.order, r.ID)
	s.byCategory[r.EntityType] = append(s.byCategory[r.EntityType], r.ID)
	if r.TypeName != "" {
		key := lowerASCII(r.TypeName)
		s.byType[key] = append(s.byType[key], r.ID)
	}
	return nil
}

func (s *MemStore) Get(id string) (Record, bool, error) {
	r, ok := s.byID[id]
	return r, ok, nil
}

func (s *MemStore) ScanByType(typeName string) ([]Record, error) {
	ids := s.byType[lowerASCII(typeName)]
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out, nil
}

func (s *MemStore) ScanByCategory(t EntityType) ([]Record, error) {
	ids := s.byCategory[t]
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out, nil
}

func (s *MemStore) All() ([]Record, error) {
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

func (s *MemStore) Reset() error {
	s.reset()
	return nil
}

func (s *MemStore) Close() error { return nil }

// lowerASCII avoids importing strings.ToLower's unicode-aware casing
// for a charset the format restricts to ASCII keywords (spec §3).
func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
