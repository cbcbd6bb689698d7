package domain

import (
	"fmt"
	"strings"
	"time"
)

// CREATE TABLE public.active_caption_assignments (
//     assignment_id      UUID PRIMARY KEY,
//     caption_id         BIGINT NOT NULL,
//     creator_id         TEXT NOT NULL,
//     schedule_id        TEXT NOT NULL,
//     scheduled_date     DATE NOT NULL,
//     send_hour          INT NOT NULL,
//     selection_strategy TEXT,
//     is_active          BOOLEAN DEFAULT TRUE,
//     locked_at          TIMESTAMPTZ DEFAULT NOW(),
//     expires_at         TIMESTAMPTZ NOT NULL
// );
// CREATE UNIQUE INDEX uq_active_caption_date
//     ON public.active_caption_assignments (caption_id, scheduled_date)
//     WHERE is_active;

// ActiveAssignment is an exclusive reservation of one caption for one
// creator on one delivery date. Rows are deactivated by the expiry sweep or
// explicit cancellation, never deleted, so the audit trail survives.
type ActiveAssignment struct {
	AssignmentID      string    `gorm:"column:assignment_id;primaryKey" json:"assignment_id"`
	CaptionID         uint64    `gorm:"column:caption_id;not null" json:"caption_id"`
	CreatorID         string    `gorm:"column:creator_id;not null" json:"creator_id"`
	ScheduleID        string    `gorm:"column:schedule_id;not null" json:"schedule_id"`
	ScheduledDate     time.Time `gorm:"column:scheduled_date;not null" json:"scheduled_date"`
	SendHour          int       `gorm:"column:send_hour;not null" json:"send_hour"`
	SelectionStrategy string    `gorm:"column:selection_strategy" json:"selection_strategy"`
	IsActive          bool      `gorm:"column:is_active;default:true" json:"is_active"`
	LockedAt          time.Time `gorm:"column:locked_at" json:"locked_at"`
	ExpiresAt         time.Time `gorm:"column:expires_at" json:"expires_at"`
}

func (ActiveAssignment) TableName() string {
	return "active_caption_assignments"
}

// LockCandidate is one (caption, date, hour) pair in a batch lock request.
type LockCandidate struct {
	CaptionID         uint64    `json:"caption_id"`
	ScheduledDate     time.Time `json:"scheduled_date"`
	SendHour          int       `json:"send_hour"`
	SelectionStrategy string    `json:"selection_strategy"`
}

// ConflictError reports which captions already held an overlapping active
// reservation when a batch lock was attempted. The whole batch was rolled
// back; the caller should reselect and retry.
type ConflictError struct {
	ScheduleID string
	CaptionIDs []uint64
}

func (e *ConflictError) Error() string {
	ids := make([]string, 0, len(e.CaptionIDs))
	for _, id := range e.CaptionIDs {
		ids = append(ids, fmt.Sprintf("%d", id))
	}
	return fmt.Sprintf("conflict: captions already reserved: [%s]", strings.Join(ids, ", "))
}
