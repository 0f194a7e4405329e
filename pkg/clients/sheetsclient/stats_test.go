package sheetsclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsReport_TabTitle(t *testing.T) {
	report := &StatsReport{GeneratedAt: time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)}

	assert.Equal(t, "Stats Tue Jun 10 2025", report.TabTitle())
}

func TestStatsReport_Values(t *testing.T) {
	report := &StatsReport{
		GeneratedAt: time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC),
		Sections: []StatsSection{
			{Title: "Donations by status", Header: []string{"Status", "Count"}, Rows: [][]interface{}{{"pending", 2}, {"distributed", 1}}},
			{Title: "Categories", Header: []string{"Category", "Quantity"}},
		},
	}

	values := report.Values()

	require.Len(t, values, 2+5+3)
	assert.Equal(t, []interface{}{"Generated", "2025-06-10T15:00:00Z"}, values[0])
	assert.Equal(t, []interface{}{"Donations by status"}, values[2])
	assert.Equal(t, []interface{}{"Status", "Count"}, values[3])
	assert.Equal(t, []interface{}{"pending", 2}, values[4])
	assert.Empty(t, values[6])
	assert.Equal(t, []interface{}{"Categories"}, values[7])
}
