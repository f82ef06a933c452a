package identity

import "gorm.io/gorm"

// ForOwner returns a GORM scope that filters by user_id. A nil owner leaves
// the query unscoped.
func ForOwner(owner *string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if owner == nil {
			return db
		}
		return db.Where("user_id = ?", *owner)
	}
}
