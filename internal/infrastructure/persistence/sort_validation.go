package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

const defaultReturnSortColumn = "created_at"

// returnSortColumns are the returns columns a listing may be ordered by
var returnSortColumns = map[string]struct{}{
	"created_at":      {},
	"updated_at":      {},
	"document_number": {},
	"status":          {},
	"type":            {},
	"total_value":     {},
	"total_loss":      {},
	"completed_at":    {},
}

// returnOrder resolves a requested ordering against the column whitelist.
// Unknown columns fall back to created_at; anything but asc sorts descending.
func returnOrder(orderBy, orderDir string) clause.OrderByColumn {
	column := strings.TrimSpace(orderBy)
	if _, ok := returnSortColumns[column]; !ok {
		column = defaultReturnSortColumn
	}
	return clause.OrderByColumn{
		Column: clause.Column{Name: column},
		Desc:   !strings.EqualFold(strings.TrimSpace(orderDir), "asc"),
	}
}
