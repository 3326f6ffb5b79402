package models

import (
	"carlink/market/internal/utils"
)

// Base carries the document id shared by every stored entity.
type Base struct {
	ID utils.SixID `bson:"_id,omitempty" json:"id"`
}

func (m *Base) GenIDIfEmpty() {
	if m.ID.IsZero() {
		m.GenID()
	}
}

func (m *Base) GenID() {
	m.ID = utils.NewSixID()
}

func NewBase() Base {
	return Base{ID: utils.NewSixID()}
}
