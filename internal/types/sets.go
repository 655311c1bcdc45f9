package types

import "sort"

// HashSet is an unordered set of alert hashes
type HashSet map[Hash]struct{}

func NewHashSet(hashes ...Hash) HashSet {
	s := make(HashSet, len(hashes))
	for _, h := range hashes {
		s.Add(h)
	}
	return s
}

func (s HashSet) Add(h Hash) {
	s[h] = struct{}{}
}

func (s HashSet) Contains(h Hash) bool {
	_, ok := s[h]
	return ok
}

func (s HashSet) Len() int {
	return len(s)
}

// Slice returns the hashes sorted, so logs and queries are stable.
func (s HashSet) Slice() []Hash {
	out := make([]Hash, 0, len(s))
	for h := range s {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SymbolSet is an unordered set of symbols
type SymbolSet map[string]struct{}

func NewSymbolSet(symbols ...string) SymbolSet {
	s := make(SymbolSet, len(symbols))
	for _, sym := range symbols {
		s.Add(sym)
	}
	return s
}

func (s SymbolSet) Add(symbol string) {
	s[symbol] = struct{}{}
}

func (s SymbolSet) Contains(symbol string) bool {
	_, ok := s[symbol]
	return ok
}

func (s SymbolSet) Len() int {
	return len(s)
}

func (s SymbolSet) Slice() []string {
	out := make([]string, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// SymbolsOf collects the distinct symbols of the given alerts.
func SymbolsOf(alerts []Alert) SymbolSet {
	s := make(SymbolSet)
	for _, a := range alerts {
		s.Add(a.Symbol)
	}
	return s
}
