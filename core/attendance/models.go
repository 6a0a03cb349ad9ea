package attendance

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

// Statuses
const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

var (
	Statuses = []Status{StatusPresent, StatusAbsent, StatusLate}

	errInvalidStatus = errors.New("invalid attendance status")
)

type Status string

// ParseStatus maps any case/whitespace variant of a status to its Status.
func ParseStatus(s string) (Status, error) {
	st := Status(core.CleanString(s, true /* lower */))
	for _, valid := range Statuses {
		if st == valid {
			return st, nil
		}
	}
	return "", errors.Wrapf(errInvalidStatus, "%q", s)
}

// NormalizeStatus resolves a submitted status: an explicit status wins,
// else the legacy `present` flag decides between present and absent. Defaults to present.
func NormalizeStatus(status string, present *bool) (Status, error) {
	if core.CleanString(status) != "" {
		return ParseStatus(status)
	}
	if present != nil && !*present {
		return StatusAbsent, nil
	}
	return StatusPresent, nil
}

type (
	// Record is one attendance observation: a student's status in a classroom, on a date.
	// An empty Subject means whole-day attendance.
	Record struct {
		ID          string    `json:"id"`
		StudentID   string    `json:"student_id"`
		ClassroomID string    `json:"classroom_id"`
		Subject     string    `json:"subject,omitempty"`
		Date        Date      `json:"date"`
		Status      Status    `json:"status"`
		MarkedBy    string    `json:"marked_by,omitempty"`
		Remarks     string    `json:"remarks,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	// Summary is the StudentSummary of the matching records of one student.
	Summary struct {
		StudentID         string  `json:"student_id"`
		Subject           string  `json:"subject,omitempty"`
		PresentDays       int     `json:"present_days"`
		AbsentDays        int     `json:"absent_days"`
		LateDays          int     `json:"late_days"`
		TotalDays         int     `json:"total_days"`
		AttendancePercent float64 `json:"attendance_percent"`
	}

	// Totals are the counts over all the matching records, regardless of student.
	Totals struct {
		PresentDays       int     `json:"present_days"`
		AbsentDays        int     `json:"absent_days"`
		LateDays          int     `json:"late_days"`
		TotalDays         int     `json:"total_days"`
		AttendancePercent float64 `json:"attendance_percent"`
	}

	Report struct {
		Filter  Filter   `json:"filter"`
		Totals  Totals   `json:"totals"`
		Details []Record `json:"details"`
	}

	NewRecord struct {
		StudentID   string `json:"student_id" validate:"required,identifier,max=64"`
		ClassroomID string `json:"classroom_id" validate:"required,identifier,max=64"`
		Subject     string `json:"subject" validate:"max=64"`
		Date        string `json:"date" validate:"required,isodate"`
		Status      string `json:"status" validate:"omitempty,attstatus"`
		Present     *bool  `json:"present"`
		Remarks     string `json:"remarks" validate:"max=500"`
	}

	MarkRequest struct {
		Records []NewRecord `json:"records" validate:"required,min=1,max=1000,dive"`
	}

	RecordUpdate struct {
		Status  string  `json:"status" validate:"required,attstatus"`
		Remarks *string `json:"remarks" validate:"omitempty,max=500"`
	}
)

type recordKey struct {
	studentID   string
	classroomID string
	subject     string
	date        Date
}

func (r Record) key() recordKey {
	return recordKey{studentID: r.StudentID, classroomID: r.ClassroomID, subject: r.Subject, date: r.Date}
}

func (nr *NewRecord) clean() {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.ClassroomID = core.CleanString(nr.ClassroomID)
	nr.Subject = core.CleanString(nr.Subject)
	nr.Date = core.CleanString(nr.Date)
	nr.Status = core.CleanString(nr.Status, true /* lower */)
	nr.Remarks = core.CleanString(nr.Remarks)
}

// Validate cleans then validates every record; all of them must be valid.
func (mr *MarkRequest) Validate(validate *validator.Validate) error {
	for i := range mr.Records {
		mr.Records[i].clean()
	}
	return validate.Struct(mr)
}

func (ru *RecordUpdate) Validate(validate *validator.Validate) error {
	ru.Status = core.CleanString(ru.Status, true /* lower */)
	if ru.Remarks != nil {
		rmk := core.CleanString(*ru.Remarks)
		ru.Remarks = &rmk
	}
	return validate.Struct(ru)
}

func (nr NewRecord) toRecord(markedBy string, now time.Time) (Record, error) {
	date, err := ParseDate(nr.Date)
	if err != nil {
		return Record{}, NewInvalidDateError("record", nr.Date)
	}
	status, err := NormalizeStatus(nr.Status, nr.Present)
	if err != nil {
		return Record{}, core.NewFieldError("status", err)
	}
	return Record{
		StudentID:   nr.StudentID,
		ClassroomID: nr.ClassroomID,
		Subject:     nr.Subject,
		Date:        date,
		Status:      status,
		MarkedBy:    markedBy,
		Remarks:     nr.Remarks,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func isValidStatus(s string) bool {
	_, err := ParseStatus(s)
	return err == nil
}

func joinStatuses() string {
	ss := make([]string, 0, len(Statuses))
	for _, s := range Statuses {
		ss = append(ss, string(s))
	}
	return strings.Join(ss, ", ")
}
