package option

import (
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a query before it is executed.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryFunc func(db *gorm.DB) *gorm.DB

func (f queryFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

// OrderBy appends an ORDER BY clause. Column names come from code, never from input.
func OrderBy(clauses ...string) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		for _, clause := range clauses {
			if strings.TrimSpace(clause) == "" {
				continue
			}
			db = db.Order(clause)
		}
		return db
	})
}

func Limit(n int) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		if n <= 0 {
			return db
		}
		return db.Limit(n)
	})
}

func Offset(n int) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		if n <= 0 {
			return db
		}
		return db.Offset(n)
	})
}

// Where adds an extra condition that cannot be expressed as a zero-value filter.
func Where(query string, args ...any) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}
