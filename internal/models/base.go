package models

import (
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// Base carries the document ID shared by every stored model.
type Base struct {
	ID utils.SixID `bson:"_id" json:"id"`
}

func (m *Base) GenIDIfEmpty() {
	if m.ID.IsZero() {
		m.GenID()
	}
}

func (m *Base) GenID() {
	m.ID = utils.NewSixID()
}
