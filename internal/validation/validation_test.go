package validation_test

import (
	"os"
	"path/filepath"
	"testing"

	"fjacquet/sales-etl/internal/validation"

	"github.com/stretchr/testify/assert"
)

func TestIsValidInputFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "raw.csv")
	assert.NoError(t, os.WriteFile(testFile, []byte("fecha\n"), 0600))

	tests := []struct {
		name        string
		path        string
		errContains string
	}{
		{name: "Existing file", path: testFile},
		{name: "Empty path", path: " ", errContains: "input path is empty"},
		{name: "Missing file", path: filepath.Join(tmpDir, "missing.csv"), errContains: "does not exist"},
		{name: "Directory", path: tmpDir, errContains: "not a regular file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.IsValidInputFile(tt.path)
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestIsValidReportFormat(t *testing.T) {
	for _, format := range []string{"json", "markdown", "md"} {
		assert.NoError(t, validation.IsValidReportFormat(format), format)
	}
	err := validation.IsValidReportFormat("xml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report format: xml")
}
