package track

import "priceScope/internal/model"

// State is the tracker's in-memory view of tokens, pairs, and the
// bundle. It implements the snapshot the pricing engine reads from.
// Mutations go through Set* so the flush pass knows what changed.
type State struct {
	tokens      map[string]model.Token
	pairs       map[string]model.Pair
	bundle      model.Bundle
	dirtyTokens map[string]struct{}
	dirtyPairs  map[string]struct{}
	bundleDirty bool
}

func NewState() *State {
	return &State{
		tokens:      make(map[string]model.Token),
		pairs:       make(map[string]model.Pair),
		dirtyTokens: make(map[string]struct{}),
		dirtyPairs:  make(map[string]struct{}),
	}
}

func (s *State) Token(id string) (model.Token, bool) {
	token, ok := s.tokens[id]
	return token, ok
}

func (s *State) Pair(id string) (model.Pair, bool) {
	pair, ok := s.pairs[id]
	return pair, ok
}

func (s *State) Bundle() model.Bundle {
	return s.bundle
}

func (s *State) SetToken(token model.Token) {
	s.tokens[token.Address] = token
	s.dirtyTokens[token.Address] = struct{}{}
}

func (s *State) SetPair(pair model.Pair) {
	s.pairs[pair.Address] = pair
	s.dirtyPairs[pair.Address] = struct{}{}
}

func (s *State) SetBundle(bundle model.Bundle) {
	s.bundle = bundle
	s.bundleDirty = true
}

// Seed places an entity into the snapshot without marking it dirty,
// for hydration from storage.
func (s *State) SeedToken(token model.Token) {
	s.tokens[token.Address] = token
}

func (s *State) SeedPair(pair model.Pair) {
	s.pairs[pair.Address] = pair
}

func (s *State) SeedBundle(bundle model.Bundle) {
	s.bundle = bundle
}

// DrainDirty returns the changed entities and clears the dirty marks.
// The final bool reports whether the bundle changed.
func (s *State) DrainDirty() ([]model.Token, []model.Pair, model.Bundle, bool) {
	tokens := make([]model.Token, 0, len(s.dirtyTokens))
	for id := range s.dirtyTokens {
		tokens = append(tokens, s.tokens[id])
	}
	pairs := make([]model.Pair, 0, len(s.dirtyPairs))
	for id := range s.dirtyPairs {
		pairs = append(pairs, s.pairs[id])
	}

	s.dirtyTokens = make(map[string]struct{})
	s.dirtyPairs = make(map[string]struct{})

	bundleDirty := s.bundleDirty
	s.bundleDirty = false

	return tokens, pairs, s.bundle, bundleDirty
}
