package audit

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahudhurio/core"
)

// Event types
const (
	EventAttendanceMark     = "attendance.mark"
	EventAttendanceUpdate   = "attendance.update"
	EventAttendanceDelete   = "attendance.delete"
	EventDefaultersNotified = "report.defaulters_notified"
)

// Entity types
const (
	EntityAttendanceRecord = "attendance_record"
	EntityClassroom        = "classroom"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

var OrderingFields = []string{"created_at", "event_type", "user_id", "entity_type"}

type (
	Entry struct {
		ID          string                 `json:"id"`
		EventType   string                 `json:"event_type"`
		UserID      string                 `json:"user_id"`
		EntityType  string                 `json:"entity_type,omitempty"`
		EntityID    string                 `json:"entity_id,omitempty"`
		Description string                 `json:"description,omitempty"`
		Meta        map[string]interface{} `json:"meta"`
		CreatedAt   time.Time              `json:"created_at"`
	}

	NewEntry struct {
		EventType   string                 `json:"event_type" validate:"required,identifier,max=64"`
		UserID      string                 `json:"user_id" validate:"max=64"`
		EntityType  string                 `json:"entity_type" validate:"max=64"`
		EntityID    string                 `json:"entity_id" validate:"max=64"`
		Description string                 `json:"description" validate:"max=1000"`
		Meta        map[string]interface{} `json:"meta"`
	}

	QueryFilter struct {
		UserID     string `query:"user_id"`
		EventType  string `query:"event_type"`
		EntityType string `query:"entity_type"`
		EntityID   string `query:"entity_id"`
		Skip       int    `query:"skip"`
		Limit      int    `query:"limit"`
	}
)

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.EventType = core.CleanString(ne.EventType, true /* lower */)
	ne.UserID = core.CleanString(ne.UserID)
	ne.EntityType = core.CleanString(ne.EntityType)
	ne.EntityID = core.CleanString(ne.EntityID)
	ne.Description = core.CleanString(ne.Description)
	return validate.Struct(ne)
}

// Clean trims the filter values and clamps the pagination.
func (qf *QueryFilter) Clean() {
	qf.UserID = core.CleanString(qf.UserID)
	qf.EventType = core.CleanString(qf.EventType, true /* lower */)
	qf.EntityType = core.CleanString(qf.EntityType)
	qf.EntityID = core.CleanString(qf.EntityID)
	if qf.Skip < 0 {
		qf.Skip = 0
	}
	if qf.Limit <= 0 {
		qf.Limit = defaultLimit
	} else if qf.Limit > maxLimit {
		qf.Limit = maxLimit
	}
}

// Matches reports whether e satisfies every constraint of the filter, pagination aside.
func (qf QueryFilter) Matches(e Entry) bool {
	return (qf.UserID == "" || e.UserID == qf.UserID) &&
		(qf.EventType == "" || e.EventType == qf.EventType) &&
		(qf.EntityType == "" || e.EntityType == qf.EntityType) &&
		(qf.EntityID == "" || e.EntityID == qf.EntityID)
}
