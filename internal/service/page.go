package service

import "github.com/and161185/formsync/internal/model"

const (
	defaultLimit = 20
	maxLimit     = 100
)

// NormalizePage clamps page to >= 1 and limit to 1..100, defaulting limit to 20.
func NormalizePage(page, limit int) model.Page {
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = defaultLimit
	case limit > maxLimit:
		limit = maxLimit
	}
	return model.Page{Page: page, Limit: limit}
}
