package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

// NewConfig returns the settings used by the tests, independent of the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:             "TEST",
		TestMode:        true,
		AppName:         "Mahudhurio",
		Build:           "test",
		SecretKey:       "test-secret-key",
		FrontendBaseURL: "http://localhost:3000",
		Server: core.ServerConfig{
			Host:            "localhost",
			Port:            "8000",
			ShutdownTimeout: time.Second,
			QueryTimeout:    5 * time.Second,
			DisableReqLogs:  true,
		},
		Attendance: core.AttendanceConfig{
			LatePolicy:         core.LatePolicyDistinct,
			DefaulterThreshold: 75,
			NotifyWindowDays:   30,
		},
	}
}

// NewValidator returns a validator with every app validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

type LogEntry struct {
	Level   string
	Message string
	Args    []interface{}
}

// Logger is a core.Logger keeping the logged entries in memory.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return new(Logger) }

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	l.entries = append(l.entries, LogEntry{Level: level, Message: msg, Args: args})
	l.mu.Unlock()
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { panic(fmt.Sprintf("fatal: %s", msg)) }

// Entries returns the entries logged at level, all of them if level is empty.
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make([]LogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			entries = append(entries, e)
		}
	}
	return entries
}

func Date(t *testing.T, s string) attendance.Date {
	d, err := attendance.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q) failed: %v", s, err)
	}
	return d
}

// NewRecord returns a record marked on date at updatedAt (now by default).
func NewRecord(
	t *testing.T,
	studentID, classroomID, subject, date string,
	status attendance.Status,
	updatedAt ...time.Time,
) attendance.Record {
	tstamp := time.Now().UTC()
	if len(updatedAt) > 0 {
		tstamp = updatedAt[0].UTC()
	}
	return attendance.Record{
		ID:          uuid.New().String(),
		StudentID:   studentID,
		ClassroomID: classroomID,
		Subject:     subject,
		Date:        Date(t, date),
		Status:      status,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
}
