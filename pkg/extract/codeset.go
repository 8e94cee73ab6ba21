package extract

// CodeSet collects unique, non-empty codes and remembers first-seen order.
// The zero value is ready to use. It is not safe for concurrent use.
type CodeSet struct {
	seen  map[string]struct{}
	order []string
}

// Add inserts codes, ignoring empty strings and codes already present.
// It returns how many codes were new.
func (s *CodeSet) Add(codes ...string) int {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	added := 0
	for _, c := range codes {
		if c == "" {
			continue
		}
		if _, ok := s.seen[c]; ok {
			continue
		}
		s.seen[c] = struct{}{}
		s.order = append(s.order, c)
		added++
	}
	return added
}

// Contains reports whether code is in the set.
func (s *CodeSet) Contains(code string) bool {
	_, ok := s.seen[code]
	return ok
}

// Len returns the number of unique codes.
func (s *CodeSet) Len() int { return len(s.order) }

// Codes returns a copy of the codes in first-seen order. It never returns nil.
func (s *CodeSet) Codes() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
