package models

// All lists every model migrated by this service.
func All() []interface{} {
	return []interface{}{
		&UserProgress{},
		&DailyStreakRecord{},
		&School{},
		&PointLog{},
	}
}
