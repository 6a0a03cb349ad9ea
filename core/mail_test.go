package core_test

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/testutil"
)

func TestEmailMessage_Render(t *testing.T) {
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(testutil.NewConfig(), logger)
	require.Empty(t, logger.Entries("error"))

	t.Run("plain body", func(t *testing.T) {
		msg := core.EmailMessage{To: []mail.Address{{Address: "a@b.c"}}, BodyStr: "hello"}
		require.NoError(t, msg.Render())
		assert.Equal(t, "hello", msg.TextContent)
		assert.Empty(t, msg.HTMLContent)
		assert.True(t, msg.HasRecipients())
		assert.True(t, msg.HasContent())
	})

	t.Run("defaulters template", func(t *testing.T) {
		msg := core.EmailMessage{
			TemplateName: "defaulters",
			TemplateData: attendance.DefaultersNotice{
				Period:      "from 2024-01-01 to 2024-01-31",
				ClassroomID: "c1",
				Threshold:   75,
				Defaulters: []attendance.Summary{
					{StudentID: "s2", PresentDays: 1, AbsentDays: 2, TotalDays: 3, AttendancePercent: 100.0 / 3},
				},
			},
		}
		require.NoError(t, msg.Render())
		assert.Contains(t, msg.TextContent, "Attendance defaulters from 2024-01-01 to 2024-01-31 - classroom c1")
		assert.Contains(t, msg.TextContent, "1 student(s) below 75.00%:")
		assert.Contains(t, msg.TextContent, "- s2: 33.33% (1 present, 0 late, 2 absent out of 3 days)")
		assert.Contains(t, msg.TextContent, "http://localhost:3000")
		assert.Contains(t, msg.HTMLContent, "<td>s2</td>")
		assert.Contains(t, msg.HTMLContent, "Classroom: <strong>c1</strong>")
		assert.NotContains(t, msg.HTMLContent, "Subject:")
		assert.False(t, msg.HasRecipients())
	})

	t.Run("unknown template", func(t *testing.T) {
		msg := core.EmailMessage{TemplateName: "nope"}
		require.NoError(t, msg.Render())
		assert.False(t, msg.HasContent())
	})
}
