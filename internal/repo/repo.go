package repo

import (
	"strings"

	"gorm.io/gorm"
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

const likeEscape = `\`

// containsPattern builds a lower-cased LIKE pattern matching s anywhere,
// with the LIKE wildcards in s escaped.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// ilike is a portable case-insensitive substring predicate for column.
func ilike(column string) string {
	return "LOWER(" + column + ") LIKE ? ESCAPE '" + likeEscape + "'"
}

// anyRow reports whether tx, an id selection, matches at least one row.
func anyRow(tx *gorm.DB) (bool, error) {
	var found []string
	if err := tx.Limit(1).Pluck("id", &found).Error; err != nil {
		return false, err
	}
	return len(found) > 0, nil
}
