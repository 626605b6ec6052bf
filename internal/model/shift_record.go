package model

import "time"

// ShiftRecord is a locally generated roster shift. The (StaffID, Date) pair
// is the upsert key so regenerating a week never duplicates shifts.
type ShiftRecord struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	StaffID   string `gorm:"size:64;not null;uniqueIndex:idx_shift_staff_date"`
	Date      string `gorm:"size:10;not null;uniqueIndex:idx_shift_staff_date"`
	StartTime string `gorm:"size:5"`
	EndTime   string `gorm:"size:5"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
