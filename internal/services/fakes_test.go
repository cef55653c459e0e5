package services

import (
	"context"
	"sync"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

type fakeCatalog struct {
	offered []models.OfferedBook
	wanted  []models.WantedBook
	err     error
}

func (c *fakeCatalog) ListOffered(_ context.Context, userID utils.SixID) ([]models.OfferedBook, error) {
	var out []models.OfferedBook
	for _, b := range c.offered {
		if b.OwnerID == userID {
			out = append(out, b)
		}
	}
	return out, c.err
}

func (c *fakeCatalog) ListWanted(_ context.Context, userID utils.SixID) ([]models.WantedBook, error) {
	var out []models.WantedBook
	for _, b := range c.wanted {
		if b.OwnerID == userID {
			out = append(out, b)
		}
	}
	return out, c.err
}

func (c *fakeCatalog) ListAllOffered(context.Context) ([]models.OfferedBook, error) {
	return c.offered, c.err
}

func (c *fakeCatalog) ListAllWanted(context.Context) ([]models.WantedBook, error) {
	return c.wanted, c.err
}

func (c *fakeCatalog) FindBookByID(_ context.Context, bookID utils.SixID) (models.CatalogEntry, error) {
	if c.err != nil {
		return nil, c.err
	}
	for _, b := range c.offered {
		if b.ID == bookID {
			return b, nil
		}
	}
	for _, b := range c.wanted {
		if b.ID == bookID {
			return b, nil
		}
	}
	return nil, ErrNotFound
}

func (c *fakeCatalog) offer(owner utils.SixID, title, author string) models.OfferedBook {
	b := models.OfferedBook{
		BookInfo:  models.BookInfo{ID: utils.NewSixID(), OwnerID: owner, Title: title, Author: author},
		Condition: models.ConditionGood,
		Available: true,
	}
	c.offered = append(c.offered, b)
	return b
}

func (c *fakeCatalog) want(owner utils.SixID, title, author string) models.WantedBook {
	b := models.WantedBook{BookInfo: models.BookInfo{ID: utils.NewSixID(), OwnerID: owner, Title: title, Author: author}}
	c.wanted = append(c.wanted, b)
	return b
}

type fakeDirectory struct {
	users map[utils.SixID]*models.User
	err   error
}

func newFakeDirectory(ids ...utils.SixID) *fakeDirectory {
	d := &fakeDirectory{users: make(map[utils.SixID]*models.User)}
	for _, id := range ids {
		d.users[id] = &models.User{Base: models.Base{ID: id}, Username: "user-" + id.String()}
	}
	return d
}

func (d *fakeDirectory) FindByID(_ context.Context, userID utils.SixID) (*models.User, error) {
	if d.err != nil {
		return nil, d.err
	}
	u, ok := d.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

type sentEvent struct {
	UserID  utils.SixID
	Kind    models.EventKind
	MatchID utils.SixID
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, userID utils.SixID, kind models.EventKind, matchID utils.SixID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{UserID: userID, Kind: kind, MatchID: matchID})
	return n.err
}

func (n *recordingNotifier) kinds() []models.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.EventKind, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Kind)
	}
	return out
}
