package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hospitalhub/accessgate/internal/model"
)

func TestCodeTable(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		codeTable(&buf, nil, now)
		assert.Equal(t, "No access codes found.\n", buf.String())
	})

	t.Run("statuses", func(t *testing.T) {
		codes := []model.AccessCode{
			{ID: "1", Code: "AAAA-BBBB-CCCC", IsActive: true, ExpiresAt: now.Add(30 * time.Minute), CreatedBy: "admin"},
			{ID: "2", Code: "DDDD-EEEE-FFFF", IsActive: true, ExpiresAt: now},
			{ID: "3", Code: "GGGG-HHHH-JJJJ", IsActive: false, ExpiresAt: now.Add(time.Hour)},
		}
		var buf bytes.Buffer
		codeTable(&buf, codes, now)

		out := buf.String()
		assert.Contains(t, out, "CODE")
		assert.Contains(t, out, "valid")
		assert.Contains(t, out, "30m left")
		assert.Contains(t, out, "expired")
		assert.Contains(t, out, "inactive")
	})
}

func TestRemaining(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"past", now.Add(-time.Minute), "-"},
		{"exact", now, "-"},
		{"seconds", now.Add(30 * time.Second), "<1m left"},
		{"minutes", now.Add(59*time.Minute + 30*time.Second), "59m left"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, remaining(tt.in, now))
		})
	}
}
