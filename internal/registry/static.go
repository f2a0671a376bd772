package registry

import "context"

// Static is an in-memory pair registry for offline runs and tests.
type Static struct {
	pairs map[string]string
}

func NewStatic() *Static {
	return &Static{pairs: make(map[string]string)}
}

// Add registers a pair for the token pairing.
func (s *Static) Add(pairID, tokenA, tokenB string) {
	s.pairs[cacheKey(tokenA, tokenB)] = pairID
}

// PairFor looks up the pair for the pairing in either token order.
func (s *Static) PairFor(_ context.Context, tokenA, tokenB string) (string, bool, error) {
	pair, ok := s.pairs[cacheKey(tokenA, tokenB)]
	return pair, ok, nil
}
