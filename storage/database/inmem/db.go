// Package inmemdb keeps the app data in memory, for tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/audit"
)

type (
	DB struct {
		attendance *attendanceTable
		audit      *auditTable
	}

	recordKey struct {
		studentID   string
		classroomID string
		subject     string
		date        string
	}

	// rows are kept in insertion order, which is the iteration order of the table.
	attendanceTable struct {
		mutex sync.RWMutex
		rows  []attendance.Record
	}

	auditTable struct {
		mutex sync.RWMutex
		rows  []audit.Entry
	}
)

func NewDB() *DB {
	return &DB{
		attendance: &attendanceTable{},
		audit:      &auditTable{},
	}
}

// Reset drops all the data.
func (db *DB) Reset() {
	db.attendance.mutex.Lock()
	db.attendance.rows = nil
	db.attendance.mutex.Unlock()

	db.audit.mutex.Lock()
	db.audit.rows = nil
	db.audit.mutex.Unlock()
}

func keyOf(r attendance.Record) recordKey {
	return recordKey{studentID: r.StudentID, classroomID: r.ClassroomID, subject: r.Subject, date: r.Date.String()}
}
