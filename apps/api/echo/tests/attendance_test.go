package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/audit"
	"github.com/trezcool/mahudhurio/testutil"
)

var (
	rec1 attendance.Record
	rec2 attendance.Record
	rec3 attendance.Record
	rec4 attendance.Record
	rec5 attendance.Record
	rec6 attendance.Record
	rec7 attendance.Record
	rec8 attendance.Record
)

// seed resets the DB with: s1 & s2 in c1 (math & art), s3 in c2 (whole-day).
func seed(t *testing.T) {
	db.Reset()
	rec1 = testutil.NewRecord(t, "s1", "c1", "math", "2024-01-08", attendance.StatusPresent)
	rec2 = testutil.NewRecord(t, "s1", "c1", "math", "2024-01-09", attendance.StatusLate)
	rec3 = testutil.NewRecord(t, "s1", "c1", "art", "2024-01-09", attendance.StatusPresent)
	rec4 = testutil.NewRecord(t, "s1", "c1", "math", "2024-01-10", attendance.StatusAbsent)
	rec5 = testutil.NewRecord(t, "s2", "c1", "math", "2024-01-08", attendance.StatusAbsent)
	rec6 = testutil.NewRecord(t, "s2", "c1", "math", "2024-01-09", attendance.StatusAbsent)
	rec7 = testutil.NewRecord(t, "s2", "c1", "art", "2024-01-09", attendance.StatusPresent)
	rec8 = testutil.NewRecord(t, "s3", "c2", "", "2024-01-08", attendance.StatusPresent)
	seedRecords(t, rec1, rec2, rec3, rec4, rec5, rec6, rec7, rec8)
}

var (
	sumS1 = attendance.Summary{StudentID: "s1", PresentDays: 2, AbsentDays: 1, LateDays: 1, TotalDays: 4, AttendancePercent: 50}
	sumS2 = attendance.Summary{StudentID: "s2", PresentDays: 1, AbsentDays: 2, TotalDays: 3, AttendancePercent: 100.0 / 3}
	sumS3 = attendance.Summary{StudentID: "s3", PresentDays: 1, TotalDays: 1, AttendancePercent: 100}
)

func Test_attendanceApi_query(t *testing.T) {
	seed(t)
	teacherToken := getToken(t, "t1", RoleTeacher)

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: "/v1/attendance", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", path: "/v1/attendance", token: getToken(t, "s1", RoleStudent),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "All", path: "/v1/attendance", token: teacherToken,
			wantData: marchallList(t, rec1, rec2, rec3, rec4, rec5, rec6, rec7, rec8),
		},
		{
			name: "Filtered", path: "/v1/attendance?classroom_id=c1&subject=math&from=2024-01-09", token: teacherToken,
			wantData: marchallList(t, rec2, rec4, rec6),
		},
		{name: "No match", path: "/v1/attendance?student_id=s9", token: teacherToken, wantData: marchallList(t)},
		{
			name: "Invalid date", path: "/v1/attendance?from=yesterday", token: teacherToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, newKindErr(t, attendance.NewInvalidDateError("from", "yesterday"))),
		},
	})
}

func Test_attendanceApi_mark(t *testing.T) {
	db.Reset()
	teacherToken := getToken(t, "t1", RoleTeacher)
	path := "/v1/attendance/manual"

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", method: http.MethodPost, path: path, token: getToken(t, "s1", RoleStudent),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "No records", method: http.MethodPost, path: path, token: teacherToken,
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"records": "this field is required"}),
		},
		{
			name: "Invalid records", method: http.MethodPost, path: path, token: teacherToken,
			body: []byte(`{"records": [
				{"student_id": "s1", "classroom_id": "c1", "date": "2024-01-08"},
				{"student_id": "s2", "date": "08/01/2024", "status": "sick"}
			]}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"records[1].classroom_id": "this field is required",
				"records[1].date":         "invalid date, expected format is YYYY-MM-DD",
				"records[1].status":       "invalid status, expected one of: present, absent, late",
			}),
		},
		{
			name: "Marked", method: http.MethodPost, path: path, token: teacherToken,
			body: []byte(`{"records": [
				{"student_id": "s1", "classroom_id": "c1", "subject": "math", "date": "2024-01-08", "status": "Late"},
				{"student_id": "s2", "classroom_id": "c1", "subject": "math", "date": "2024-01-08", "present": false},
				{"student_id": "s1", "classroom_id": "c1", "subject": "math", "date": "2024-01-08", "status": "present"},
				{"student_id": "s3", "classroom_id": "c2", "date": "2024-01-08", "remarks": " bus "}
			]}`),
			wantCode: http.StatusCreated, wantData: marchallObj(t, MarkResponse{Marked: 3}),
		},
	})

	records, err := attRepo.QueryRecords(context.Background(), attendance.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, attendance.StatusPresent, records[0].Status)
	assert.Equal(t, "t1", records[0].MarkedBy)
	assert.Equal(t, attendance.StatusAbsent, records[1].Status)
	assert.Equal(t, "bus", records[2].Remarks)

	entries, err := logRepo.QueryEntries(
		context.Background(),
		audit.QueryFilter{EventType: audit.EventAttendanceMark},
		nil,
	)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	byClassroom := map[string]interface{}{}
	for _, e := range entries {
		assert.Equal(t, "t1", e.UserID)
		byClassroom[e.EntityID] = e.Meta["records"]
	}
	assert.Equal(t, map[string]interface{}{"c1": 3, "c2": 1}, byClassroom)
}

func Test_attendanceApi_stats(t *testing.T) {
	seed(t)
	teacherToken := getToken(t, "t1", RoleTeacher)
	adminToken := getToken(t, "a1", RoleAdmin+"principal")

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: "/v1/attendance/stats", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "All", path: "/v1/attendance/stats", token: adminToken, wantData: marchallList(t, sumS1, sumS2, sumS3)},
		{
			name: "Subject", path: "/v1/attendance/stats?classroom_id=c1&subject=math", token: teacherToken,
			wantData: marchallList(t,
				attendance.Summary{StudentID: "s1", PresentDays: 1, AbsentDays: 1, LateDays: 1, TotalDays: 3, AttendancePercent: 100.0 / 3},
				attendance.Summary{StudentID: "s2", AbsentDays: 2, TotalDays: 2},
			),
		},
		{
			name: "Month", path: "/v1/attendance/stats?month=2024-01&student_id=s3", token: teacherToken,
			wantData: marchallList(t, sumS3),
		},
		{name: "Empty month", path: "/v1/attendance/stats?month=2024-02", token: teacherToken, wantData: marchallList(t)},
		{
			name: "Month & range", path: "/v1/attendance/stats?month=2024-01&from=2024-01-01", token: teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, newKindErr(t, attendance.NewInvalidFilterError("month cannot be combined with from/to"))),
		},
		{
			name: "Invalid range", path: "/v1/attendance/stats?from=2024-02-01&to=2024-01-01", token: teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, newKindErr(t, attendance.NewInvalidRangeError(
				testutil.Date(t, "2024-02-01"), testutil.Date(t, "2024-01-01"),
			))),
		},
	})
}

func Test_attendanceApi_myStats(t *testing.T) {
	seed(t)
	studentToken := getToken(t, "s2", RoleStudent)

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: "/v1/attendance/mystats", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Student required", path: "/v1/attendance/mystats", token: getToken(t, "t1", RoleTeacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "Own", path: "/v1/attendance/mystats", token: studentToken, wantData: marchallList(t, sumS2)},
		{name: "Others ignored", path: "/v1/attendance/mystats?student_id=s1", token: studentToken, wantData: marchallList(t, sumS2)},
		{
			name: "Filtered", path: "/v1/attendance/mystats?subject=art", token: studentToken,
			wantData: marchallList(t, attendance.Summary{StudentID: "s2", PresentDays: 1, TotalDays: 1, AttendancePercent: 100}),
		},
		{name: "No records", path: "/v1/attendance/mystats", token: getToken(t, "s9", RoleStudent), wantData: marchallList(t)},
	})
}

func Test_attendanceApi_subjects(t *testing.T) {
	seed(t)
	teacherToken := getToken(t, "t1", RoleTeacher)

	runHTTPTests(t, app, []httpTest{
		{
			name: "Breakdown", path: "/v1/attendance/subjects?classroom_id=c1&subject=art", token: teacherToken,
			wantData: marchallList(t,
				attendance.Summary{StudentID: "s1", Subject: "art", PresentDays: 1, TotalDays: 1, AttendancePercent: 100},
				attendance.Summary{StudentID: "s2", Subject: "art", PresentDays: 1, TotalDays: 1, AttendancePercent: 100},
			),
		},
		{
			name: "Classroom required", path: "/v1/attendance/subjects?subject=art", token: teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, newKindErr(t, attendance.NewInvalidFilterError("subject breakdown requires both classroom_id and subject"))),
		},
	})
}

func Test_attendanceApi_detail(t *testing.T) {
	seed(t)
	teacherToken := getToken(t, "t1", RoleTeacher)
	adminToken := getToken(t, "a1", RoleAdmin)
	path := "/v1/attendance/" + rec2.ID
	unknown := "/v1/attendance/0b0e4e6e-5b3c-4f3a-9a53-7e8c3f0d2a11"

	updated := rec2
	updated.Status = attendance.StatusPresent
	updated.Remarks = "bus strike"
	updated.MarkedBy = "t1"

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Retrieve", path: path, token: teacherToken, wantData: marchallObj(t, rec2)},
		{name: "Retrieve unknown", path: unknown, token: teacherToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "Retrieve invalid ID", path: "/v1/attendance/lol", token: teacherToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{
			name: "Update invalid", method: http.MethodPut, path: path, token: teacherToken, body: []byte(`{"status": "gone"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "invalid status, expected one of: present, absent, late"}),
		},
		{
			name: "Update unknown", method: http.MethodPut, path: unknown, token: teacherToken, body: []byte(`{"status": "absent"}`),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Delete as teacher", method: http.MethodDelete, path: path, token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "Delete unknown", method: http.MethodDelete, path: unknown, token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	})

	// update
	req, rec := newAuthRequest(http.MethodPut, path, teacherToken, []byte(`{"status": " PRESENT", "remarks": "bus strike "}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := attRepo.GetRecord(context.Background(), rec2.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Status, got.Status)
	assert.Equal(t, updated.Remarks, got.Remarks)
	assert.Equal(t, updated.MarkedBy, got.MarkedBy)
	assert.True(t, got.UpdatedAt.After(rec2.UpdatedAt) || got.UpdatedAt.Equal(rec2.UpdatedAt))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, got)}, rec)

	entries, err := logRepo.QueryEntries(context.Background(), audit.QueryFilter{EntityID: rec2.ID}, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.EventAttendanceUpdate, entries[0].EventType)
	assert.Equal(t, map[string]interface{}{"from": attendance.StatusLate, "to": attendance.StatusPresent}, entries[0].Meta)

	// delete
	runHTTPTests(t, app, []httpTest{
		{name: "Delete", method: http.MethodDelete, path: path, token: adminToken, wantCode: http.StatusNoContent},
		{name: "Deleted", path: path, token: teacherToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	})
	entries, err = logRepo.QueryEntries(context.Background(), audit.QueryFilter{EventType: audit.EventAttendanceDelete}, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a1", entries[0].UserID)
	assert.Equal(t, rec2.ID, entries[0].EntityID)
}
