package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"buildledger/internal/domain"
)

// forUpdate adds SELECT ... FOR UPDATE. SQLite ignores the clause and serializes
// writers with an immediate transaction instead.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func notFound(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound(entity, id)
	}
	return err
}

// ArchiveStamp is the marker written on every row archived by one operation.
// Restore matches on it, so rows archived earlier on their own stay archived.
func ArchiveStamp(now time.Time) time.Time {
	return now.UTC().Truncate(time.Microsecond)
}
