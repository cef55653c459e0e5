package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

func offer(owner utils.SixID, title, author string) models.OfferedBook {
	return models.OfferedBook{
		BookInfo:  models.BookInfo{ID: utils.NewSixID(), OwnerID: owner, Title: title, Author: author},
		Condition: models.ConditionGood,
		Available: true,
	}
}

func want(owner utils.SixID, title, author string) models.WantedBook {
	return models.WantedBook{BookInfo: models.BookInfo{ID: utils.NewSixID(), OwnerID: owner, Title: title, Author: author}}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "the left hand of darkness", NormalizeText("  The  Left\tHand of DARKNESS "))
	assert.Equal(t, "", NormalizeText("   "))
}

func TestNormalizeISBN(t *testing.T) {
	assert.Equal(t, "043942089X", NormalizeISBN("0-439-42089-x"))
	assert.Equal(t, "9780441013593", NormalizeISBN("978 0441 013593"))
	assert.Equal(t, "", NormalizeISBN(""))
}

func TestSatisfies(t *testing.T) {
	owner, other := utils.NewSixID(), utils.NewSixID()

	assert.True(t, Satisfies(offer(owner, "Dune", "Frank Herbert"), want(other, " dune ", "FRANK  HERBERT")))
	assert.False(t, Satisfies(offer(owner, "Dune", "Frank Herbert"), want(other, "Dune Messiah", "Frank Herbert")))

	o := offer(owner, "Dune", "F. Herbert")
	o.ISBN = "978-0441013593"
	w := want(other, "DUNE (40th anniversary)", "Frank Herbert")
	w.ISBN = "9780441013593"
	assert.True(t, Satisfies(o, w), "equal ISBNs match despite different titles")

	w.ISBN = ""
	assert.False(t, Satisfies(o, w), "ISBN on one side only falls back to title and author")
}

func TestFindCandidates_Reciprocal(t *testing.T) {
	a, b := utils.NewSixID(), utils.NewSixID()
	dune := offer(a, "Dune", "Frank Herbert")
	orwell := offer(b, "1984", "George Orwell")

	got := FindCandidates(
		[]models.OfferedBook{dune, orwell},
		[]models.WantedBook{want(a, "1984", "George Orwell"), want(b, "Dune", "Frank Herbert")},
	)

	require.Len(t, got, 1)
	c := got[0]
	assert.True(t, c.UserA.String() < c.UserB.String())
	if c.UserA == a {
		assert.Equal(t, dune.ID, c.BookFromA)
		assert.Equal(t, orwell.ID, c.BookFromB)
	} else {
		assert.Equal(t, orwell.ID, c.BookFromA)
		assert.Equal(t, dune.ID, c.BookFromB)
	}
}

func TestFindCandidates_OneDirectionalInterestIsNotAMatch(t *testing.T) {
	a, b := utils.NewSixID(), utils.NewSixID()

	got := FindCandidates(
		[]models.OfferedBook{offer(a, "Dune", "Frank Herbert"), offer(b, "1984", "George Orwell")},
		[]models.WantedBook{want(a, "1984", "George Orwell")},
	)

	assert.Empty(t, got)
}

func TestFindCandidates_IgnoresUnavailableAndSelf(t *testing.T) {
	a, b := utils.NewSixID(), utils.NewSixID()
	withdrawn := offer(a, "Dune", "Frank Herbert")
	withdrawn.Available = false

	got := FindCandidates(
		[]models.OfferedBook{withdrawn, offer(b, "1984", "George Orwell"), offer(a, "Emma", "Jane Austen")},
		[]models.WantedBook{want(a, "1984", "George Orwell"), want(b, "Dune", "Frank Herbert"), want(a, "Emma", "Jane Austen")},
	)

	assert.Empty(t, got)
}

func TestFindCandidates_CartesianAndDeterministic(t *testing.T) {
	a, b := utils.NewSixID(), utils.NewSixID()
	offered := []models.OfferedBook{
		offer(a, "Dune", "Frank Herbert"),
		offer(a, "Emma", "Jane Austen"),
		offer(b, "1984", "George Orwell"),
	}
	wanted := []models.WantedBook{
		want(b, "Dune", "Frank Herbert"),
		want(b, "Emma", "Jane Austen"),
		want(b, "emma", "jane austen"), // duplicate wish must not double the candidates
		want(a, "1984", "George Orwell"),
	}

	first := FindCandidates(offered, wanted)
	second := FindCandidates(offered, wanted)

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.NotEqual(t, first[0].PairKey(), first[1].PairKey())
}

func TestSplitEntries(t *testing.T) {
	owner := utils.NewSixID()
	offered, wanted := SplitEntries([]models.CatalogEntry{
		offer(owner, "Dune", "Frank Herbert"),
		want(owner, "1984", "George Orwell"),
		offer(owner, "Emma", "Jane Austen"),
	})
	assert.Len(t, offered, 2)
	assert.Len(t, wanted, 1)
}
