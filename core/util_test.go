package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
)

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Hello World", core.CleanString("  Hello World \n"))
	assert.Equal(t, "hello world", core.CleanString("\tHello World ", true))
	assert.Equal(t, "", core.CleanString("   "))
}

func TestAllowedOrderings(t *testing.T) {
	ords := []core.DBOrdering{
		{Field: "created_at"},
		{Field: "password", Ascending: true},
		{Field: "user_id", Ascending: true},
	}
	assert.Equal(t,
		[]core.DBOrdering{{Field: "created_at"}, {Field: "user_id", Ascending: true}},
		core.AllowedOrderings(ords, "created_at", "user_id"),
	)
	assert.Nil(t, core.AllowedOrderings(nil, "created_at"))
	assert.Empty(t, core.AllowedOrderings(ords))
}

func TestDBOrdering_String(t *testing.T) {
	assert.Equal(t, "created_at DESC", core.DBOrdering{Field: "created_at"}.String())
	assert.Equal(t, "user_id ASC", core.DBOrdering{Field: "user_id", Ascending: true}.String())
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantMsg   string
		wantField map[string]string
	}{
		{
			name:      "fields only",
			err:       core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid"}, core.FieldError{Field: "date", Error: "required"}),
			wantMsg:   "status: invalid; date: required",
			wantField: map[string]string{"status": "invalid", "date": "required"},
		},
		{
			name:      "single field",
			err:       core.NewFieldError("records[0].status", errBoom),
			wantMsg:   "boom",
			wantField: map[string]string{"records[0].status": "boom"},
		},
		{name: "no fields", err: core.NewValidationError(errBoom), wantMsg: "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vErr, ok := tt.err.(*core.ValidationError)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.Equal(t, tt.wantField, vErr.FieldMap())
		})
	}
	assert.Equal(t, errBoom, core.NewValidationError(errBoom).(*core.ValidationError).Unwrap())
}

var errBoom = errors.New("boom")

func TestGetwd(t *testing.T) {
	t.Run("project root", func(t *testing.T) {
		t.Setenv("WORKDIR", "")
		wd := core.Getwd()
		_, err := os.Stat(filepath.Join(wd, "go.mod"))
		assert.NoError(t, err)
	})
	t.Run("override", func(t *testing.T) {
		t.Setenv("WORKDIR", "/srv/mahudhurio")
		assert.Equal(t, "/srv/mahudhurio", core.Getwd())
	})
}
