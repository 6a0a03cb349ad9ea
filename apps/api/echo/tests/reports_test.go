package tests

import (
	"net/http"
	"testing"

	. "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/testutil"
)

func Test_reportApi_leaderboard(t *testing.T) {
	seed(t)
	teacherToken := getToken(t, "t1", RoleTeacher)

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: "/v1/reports/leaderboard", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", path: "/v1/reports/leaderboard", token: getToken(t, "s1", RoleStudent),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Default size", path: "/v1/reports/leaderboard", token: teacherToken,
			wantData: marchallObj(t, LeaderboardResponse{N: 10, Leaderboard: []attendance.Summary{sumS3, sumS1, sumS2}}),
		},
		{
			name: "Top 2", path: "/v1/reports/leaderboard?n=2", token: teacherToken,
			wantData: marchallObj(t, LeaderboardResponse{N: 2, Leaderboard: []attendance.Summary{sumS3, sumS1}}),
		},
		{
			name: "Top 0", path: "/v1/reports/leaderboard?n=0", token: teacherToken,
			wantData: marchallObj(t, LeaderboardResponse{N: 0, Leaderboard: []attendance.Summary{}}),
		},
		{
			name: "Classroom", path: "/v1/reports/leaderboard?classroom_id=c1&n=1", token: teacherToken,
			wantData: marchallObj(t, LeaderboardResponse{N: 1, Leaderboard: []attendance.Summary{sumS1}}),
		},
		{
			name: "Negative size", path: "/v1/reports/leaderboard?n=-1", token: teacherToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, newKindErr(t, attendance.NewInvalidFilterError("invalid leaderboard size -1: must be >= 0"))),
		},
		{
			name: "Invalid size", path: "/v1/reports/leaderboard?n=ten", token: teacherToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, newKindErr(t, attendance.NewInvalidFilterError(`invalid leaderboard size "ten"`))),
		},
	})
}

func Test_reportApi_defaulters(t *testing.T) {
	seed(t)
	teacherToken := getToken(t, "t1", RoleTeacher)

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: "/v1/reports/defaulters", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Default threshold", path: "/v1/reports/defaulters", token: teacherToken,
			wantData: marchallObj(t, DefaultersResponse{Threshold: 75, Defaulters: []attendance.Summary{sumS2, sumS1}}),
		},
		{
			name: "Threshold 50", path: "/v1/reports/defaulters?threshold=50", token: teacherToken,
			wantData: marchallObj(t, DefaultersResponse{Threshold: 50, Defaulters: []attendance.Summary{sumS2}}),
		},
		{
			name: "Threshold 0", path: "/v1/reports/defaulters?threshold=0", token: teacherToken,
			wantData: marchallObj(t, DefaultersResponse{Threshold: 0, Defaulters: []attendance.Summary{}}),
		},
		{
			name: "Threshold 100", path: "/v1/reports/defaulters?threshold=100&classroom_id=c2", token: teacherToken,
			wantData: marchallObj(t, DefaultersResponse{Threshold: 100, Defaulters: []attendance.Summary{}}),
		},
		{
			name: "Out of range", path: "/v1/reports/defaulters?threshold=101", token: teacherToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, newKindErr(t, attendance.NewInvalidThresholdError(101))),
		},
		{
			name: "NaN", path: "/v1/reports/defaulters?threshold=NaN", token: teacherToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, kindErr{Error: "invalid threshold NaN: must be between 0 and 100", Kind: attendance.KindInvalidThreshold}),
		},
		{
			name: "Not a number", path: "/v1/reports/defaulters?threshold=high", token: teacherToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, kindErr{
				Error: `invalid threshold "high": must be a number between 0 and 100`,
				Kind:  attendance.KindInvalidThreshold,
			}),
		},
	})
}

func Test_reportApi_report(t *testing.T) {
	seed(t)
	teacherToken := getToken(t, "t1", RoleTeacher)
	jan9 := testutil.Date(t, "2024-01-09")

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: "/v1/reports/report", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Day", path: "/v1/reports/report?classroom_id=c1&from=2024-01-09&to=2024-01-09", token: teacherToken,
			wantData: marchallObj(t, attendance.Report{
				Filter: attendance.Filter{ClassroomID: "c1", From: jan9, To: jan9},
				Totals: attendance.Totals{PresentDays: 2, AbsentDays: 1, LateDays: 1, TotalDays: 4, AttendancePercent: 50},
				Details: []attendance.Record{rec3, rec2, rec7, rec6},
			}),
		},
		{
			name: "Student", path: "/v1/reports/report?student_id=s3", token: teacherToken,
			wantData: marchallObj(t, attendance.Report{
				Filter:  attendance.Filter{StudentID: "s3"},
				Totals:  attendance.Totals{PresentDays: 1, TotalDays: 1, AttendancePercent: 100},
				Details: []attendance.Record{rec8},
			}),
		},
		{
			name: "Empty", path: "/v1/reports/report?student_id=s9", token: teacherToken,
			wantData: marchallObj(t, attendance.Report{
				Filter:  attendance.Filter{StudentID: "s9"},
				Details: []attendance.Record{},
			}),
		},
		{
			name: "Invalid month", path: "/v1/reports/report?month=2024-13", token: teacherToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, newKindErr(t, attendance.NewInvalidDateError("month", "2024-13"))),
		},
	})
}
