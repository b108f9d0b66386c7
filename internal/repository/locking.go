package repository

import "gorm.io/gorm/clause"

// skipLockedClause builds the locking clause used by row-lock based queue
// acquisition on Postgres and MySQL. Both drivers accept the same
// "FOR UPDATE SKIP LOCKED" syntax through gorm's generic clause.Locking.
func skipLockedClause() clause.Locking {
	return clause.Locking{
		Strength: "UPDATE",
		Options:  "SKIP LOCKED",
	}
}
