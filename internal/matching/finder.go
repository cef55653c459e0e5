// Package matching computes reciprocal swap candidates from catalog state.
//
// Two users are reciprocal when each offers a book the other wants. A wanted
// entry is satisfied by an offered book when their ISBNs are equal (both
// present) or when their normalised (title, author) keys are equal.
package matching

import (
	"sort"
	"strings"
	"unicode"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// Candidate is one reciprocal combination. UserA offers BookFromA, which
// UserB wants; UserB offers BookFromB, which UserA wants. UserA always has
// the smaller ID string.
type Candidate struct {
	UserA     utils.SixID
	BookFromA utils.SixID
	UserB     utils.SixID
	BookFromB utils.SixID
}

// PairKey returns the unordered pair key for the candidate.
func (c Candidate) PairKey() string {
	return models.PairKey(c.UserA, c.BookFromA, c.UserB, c.BookFromB)
}

// NormalizeText lower-cases s, trims it and collapses inner whitespace runs.
func NormalizeText(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), unicode.IsSpace), " ")
}

// NormalizeISBN strips separators and upper-cases the check digit.
func NormalizeISBN(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		}
	}
	return b.String()
}

// TitleAuthorKey is the normalised matching key of a book.
func TitleAuthorKey(info models.BookInfo) string {
	return NormalizeText(info.Title) + "\x00" + NormalizeText(info.Author)
}

// Satisfies reports whether offer fulfils want.
func Satisfies(offer models.OfferedBook, want models.WantedBook) bool {
	if isbnA, isbnB := NormalizeISBN(offer.ISBN), NormalizeISBN(want.ISBN); isbnA != "" && isbnA == isbnB {
		return true
	}
	return TitleAuthorKey(offer.BookInfo) == TitleAuthorKey(want.BookInfo)
}

// wantIndex finds who wants a given offered book.
type wantIndex struct {
	byKey  map[string]map[utils.SixID]struct{}
	byISBN map[string]map[utils.SixID]struct{}
}

func newWantIndex(wanted []models.WantedBook) *wantIndex {
	idx := &wantIndex{
		byKey:  make(map[string]map[utils.SixID]struct{}),
		byISBN: make(map[string]map[utils.SixID]struct{}),
	}
	for _, w := range wanted {
		addTo(idx.byKey, TitleAuthorKey(w.BookInfo), w.OwnerID)
		if isbn := NormalizeISBN(w.ISBN); isbn != "" {
			addTo(idx.byISBN, isbn, w.OwnerID)
		}
	}
	return idx
}

func addTo(m map[string]map[utils.SixID]struct{}, key string, owner utils.SixID) {
	set, ok := m[key]
	if !ok {
		set = make(map[utils.SixID]struct{})
		m[key] = set
	}
	set[owner] = struct{}{}
}

// wanters returns the owners who want offer, excluding its own owner.
func (idx *wantIndex) wanters(offer models.OfferedBook) map[utils.SixID]struct{} {
	out := make(map[utils.SixID]struct{})
	for owner := range idx.byKey[TitleAuthorKey(offer.BookInfo)] {
		out[owner] = struct{}{}
	}
	if isbn := NormalizeISBN(offer.ISBN); isbn != "" {
		for owner := range idx.byISBN[isbn] {
			out[owner] = struct{}{}
		}
	}
	delete(out, offer.OwnerID)
	return out
}

type userPair struct {
	from, to utils.SixID
}

// FindCandidates returns every reciprocal combination in the catalog,
// sorted by pair key. Unavailable offers are ignored. The result depends
// only on the input, so repeated runs over the same catalog agree.
func FindCandidates(offered []models.OfferedBook, wanted []models.WantedBook) []Candidate {
	idx := newWantIndex(wanted)

	// interest[{u,v}] = books u offers that v wants
	interest := make(map[userPair][]utils.SixID)
	seen := make(map[userPair]map[utils.SixID]struct{})
	for _, offer := range offered {
		if !offer.Available {
			continue
		}
		for wanter := range idx.wanters(offer) {
			p := userPair{from: offer.OwnerID, to: wanter}
			if seen[p] == nil {
				seen[p] = make(map[utils.SixID]struct{})
			}
			if _, dup := seen[p][offer.ID]; dup {
				continue
			}
			seen[p][offer.ID] = struct{}{}
			interest[p] = append(interest[p], offer.ID)
		}
	}

	var out []Candidate
	for p, fromU := range interest {
		u, v := p.from, p.to
		if u.String() > v.String() {
			continue // each unordered pair is handled once, from its smaller side
		}
		fromV := interest[userPair{from: v, to: u}]
		if len(fromV) == 0 {
			continue
		}
		for _, x := range fromU {
			for _, y := range fromV {
				out = append(out, Candidate{UserA: u, BookFromA: x, UserB: v, BookFromB: y})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].PairKey() < out[j].PairKey()
	})
	return out
}

// SplitEntries separates validated catalog entries into their variants.
func SplitEntries(entries []models.CatalogEntry) (offered []models.OfferedBook, wanted []models.WantedBook) {
	for _, e := range entries {
		switch b := e.(type) {
		case models.OfferedBook:
			offered = append(offered, b)
		case models.WantedBook:
			wanted = append(wanted, b)
		}
	}
	return offered, wanted
}
