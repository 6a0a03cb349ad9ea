package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core/audit"
)

func createEntry(t *testing.T, eventType, userID string, createdAt time.Time) audit.Entry {
	entry, err := logRepo.CreateEntry(context.Background(), audit.Entry{
		ID:        "00000000-0000-4000-8000-" + createdAt.Format("150405") + "000000",
		EventType: eventType,
		UserID:    userID,
		Meta:      map[string]interface{}{},
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	return entry
}

func Test_logApi_query(t *testing.T) {
	db.Reset()
	adminToken := getToken(t, "a1", RoleAdmin)
	now := time.Now().UTC().Truncate(time.Second)

	e1 := createEntry(t, audit.EventAttendanceMark, "t1", now.Add(-3*time.Hour))
	e2 := createEntry(t, audit.EventAttendanceUpdate, "t2", now.Add(-2*time.Hour))
	e3 := createEntry(t, audit.EventAttendanceMark, "t2", now.Add(-1*time.Hour))

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: "/v1/logs", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Invalid token", path: "/v1/logs", token: adminToken + "x",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "Admin required", path: "/v1/logs", token: getToken(t, "t1", RoleTeacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "All", path: "/v1/logs", token: adminToken, wantData: marchallList(t, e3, e2, e1)},
		{name: "By user", path: "/v1/logs?user_id=t2", token: adminToken, wantData: marchallList(t, e3, e2)},
		{name: "By event", path: "/v1/logs?event_type=attendance.mark", token: adminToken, wantData: marchallList(t, e3, e1)},
		{name: "Ordered", path: "/v1/logs?ordering=user_id,-created_at", token: adminToken, wantData: marchallList(t, e1, e3, e2)},
		{name: "Paginated", path: "/v1/logs?skip=1&limit=1", token: adminToken, wantData: marchallList(t, e2)},
		{name: "No match", path: "/v1/logs?user_id=nobody", token: adminToken, wantData: marchallList(t)},
	})
}

func Test_logApi_create(t *testing.T) {
	db.Reset()
	adminToken := getToken(t, "a1", RoleAdmin)

	runHTTPTests(t, app, []httpTest{
		{
			name: "Admin required", method: http.MethodPost, path: "/v1/logs", token: getToken(t, "t1", RoleTeacher),
			body: []byte(`{"event_type": "note"}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Invalid", method: http.MethodPost, path: "/v1/logs", token: adminToken,
			body:     []byte(`{"event_type": "bad event"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"event_type": "only letters, digits, '_', '-', '.' and ':' are allowed"}),
		},
	})

	req, rec := newAuthRequest(http.MethodPost, "/v1/logs", adminToken,
		[]byte(`{"event_type": "Report.Exported", "description": " monthly ", "meta": {"month": "2024-01"}}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var entry audit.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "report.exported", entry.EventType)
	assert.Equal(t, "a1", entry.UserID)
	assert.Equal(t, "monthly", entry.Description)
	assert.Equal(t, map[string]interface{}{"month": "2024-01"}, entry.Meta)

	// retrieve & delete
	path := "/v1/logs/" + entry.ID
	runHTTPTests(t, app, []httpTest{
		{name: "Retrieve", path: path, token: adminToken, wantData: rec.Body.Bytes()},
		{name: "Retrieve invalid ID", path: "/v1/logs/lol", token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "Delete", method: http.MethodDelete, path: path, token: adminToken, wantCode: http.StatusNoContent},
		{name: "Deleted", path: path, token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "Delete again", method: http.MethodDelete, path: path, token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	})
}
