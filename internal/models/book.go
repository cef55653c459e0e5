package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// BookCondition describes the physical state of an offered book.
type BookCondition string

const (
	ConditionLikeNew  BookCondition = "like-new"
	ConditionVeryGood BookCondition = "very-good"
	ConditionGood     BookCondition = "good"
	ConditionFair     BookCondition = "fair"
	ConditionPoor     BookCondition = "poor"
)

// ErrMixedBookRow is returned when a catalog row claims to be both offered and wanted.
var ErrMixedBookRow = errors.New("book row is marked both available and wanted")

// Book is a row of the shared `books` catalog collection. The catalog is
// written by the listing front end; the match core only reads it and
// converts rows into OfferedBook / WantedBook through Entry.
type Book struct {
	ID          utils.SixID    `bson:"_id" json:"id" validate:"required"`
	OwnerID     utils.SixID    `bson:"owner_id" json:"owner_id" validate:"required"`
	ISBN        string         `bson:"isbn,omitempty" json:"isbn,omitempty" validate:"omitempty,max=20"`
	Title       string         `bson:"title" json:"title" validate:"required,max=300"`
	Author      string         `bson:"author" json:"author" validate:"required,max=200"`
	Genre       string         `bson:"genre" json:"genre"`
	Condition   *BookCondition `bson:"condition,omitempty" json:"condition,omitempty" validate:"omitempty,oneof=like-new very-good good fair poor"`
	Description string         `bson:"description,omitempty" json:"description,omitempty"`
	IsAvailable bool           `bson:"is_available" json:"is_available"`
	IsWanted    bool           `bson:"is_wanted" json:"is_wanted"`
	Price       *float64       `bson:"price,omitempty" json:"price,omitempty" validate:"omitempty,gte=0"`
	AcceptsSwap bool           `bson:"accepts_swap" json:"accepts_swap"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `bson:"updated_at" json:"updated_at"`
}

// BookInfo holds the fields shared by both catalog entry variants.
type BookInfo struct {
	ID      utils.SixID `json:"id"`
	OwnerID utils.SixID `json:"owner_id"`
	ISBN    string      `json:"isbn,omitempty"`
	Title   string      `json:"title"`
	Author  string      `json:"author"`
	Genre   string      `json:"genre,omitempty"`
}

// CatalogEntry is either an OfferedBook or a WantedBook.
type CatalogEntry interface {
	Info() BookInfo
	catalogEntry()
}

// OfferedBook is a book its owner holds. Available is false once the owner
// withdraws it; only available offers take part in matching.
type OfferedBook struct {
	BookInfo
	Condition   BookCondition `json:"condition" validate:"required,oneof=like-new very-good good fair poor"`
	Price       *float64      `json:"price,omitempty" validate:"omitempty,gte=0"`
	AcceptsSwap bool          `json:"accepts_swap"`
	Available   bool          `json:"available"`
}

// WantedBook is a wishlist entry.
type WantedBook struct {
	BookInfo
}

func (b OfferedBook) Info() BookInfo { return b.BookInfo }
func (b OfferedBook) catalogEntry()  {}
func (b WantedBook) Info() BookInfo  { return b.BookInfo }
func (b WantedBook) catalogEntry()   {}

func (b *Book) info() BookInfo {
	return BookInfo{
		ID:      b.ID,
		OwnerID: b.OwnerID,
		ISBN:    b.ISBN,
		Title:   b.Title,
		Author:  b.Author,
		Genre:   b.Genre,
	}
}

// Entry validates the row and returns its variant.
func (b *Book) Entry() (CatalogEntry, error) {
	if err := Validate(b); err != nil {
		return nil, fmt.Errorf("book %s: %w", b.ID, err)
	}
	if b.IsWanted && b.IsAvailable {
		return nil, fmt.Errorf("book %s: %w", b.ID, ErrMixedBookRow)
	}
	if b.IsWanted {
		return WantedBook{BookInfo: b.info()}, nil
	}

	offered := OfferedBook{
		BookInfo:    b.info(),
		Price:       b.Price,
		AcceptsSwap: b.AcceptsSwap,
		Available:   b.IsAvailable,
	}
	if b.Condition != nil {
		offered.Condition = *b.Condition
	}
	if err := Validate(offered); err != nil {
		return nil, fmt.Errorf("offered book %s: %w", b.ID, err)
	}
	return offered, nil
}

// IsOffered reports whether the row takes part in matching on the offering side.
func (b *Book) IsOffered() bool {
	return b.IsAvailable && !b.IsWanted
}
