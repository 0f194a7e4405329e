package sheetsclient

import (
	"fmt"
	"time"

	"google.golang.org/api/sheets/v4"
)

// StatsSection is one titled table of the stats report
type StatsSection struct {
	Title  string
	Header []string
	Rows   [][]interface{}
}

// StatsReport is a dated snapshot of the dashboard figures
type StatsReport struct {
	GeneratedAt time.Time
	Sections    []StatsSection
}

// TabTitle names the tab a report is written to, e.g. "Stats Tue Jun 10 2025"
func (r *StatsReport) TabTitle() string {
	return "Stats " + r.GeneratedAt.Format("Mon Jan 02 2006")
}

// Values lays the report out as sheet rows: a generated-at line, then each
// section as a title row, a header row, its rows and a blank separator
func (r *StatsReport) Values() [][]interface{} {
	values := [][]interface{}{
		{"Generated", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{},
	}
	for _, section := range r.Sections {
		values = append(values, []interface{}{section.Title})
		header := make([]interface{}, len(section.Header))
		for i, h := range section.Header {
			header[i] = h
		}
		values = append(values, header)
		values = append(values, section.Rows...)
		values = append(values, []interface{}{})
	}
	return values
}

// PublishStats writes a report to its own tab, creating the tab when missing
// and replacing its contents when a report for the same day already exists.
// Returns the tab title.
func (c *Client) PublishStats(spreadsheetID string, report *StatsReport) (string, error) {
	tabTitle := report.TabTitle()

	exists, err := c.hasSheet(spreadsheetID, tabTitle)
	if err != nil {
		return "", err
	}

	if exists {
		_, err := c.service.Spreadsheets.Values.Clear(spreadsheetID, tabTitle, &sheets.ClearValuesRequest{}).Do()
		if err != nil {
			return "", fmt.Errorf("failed to clear tab %q: %w", tabTitle, err)
		}
	} else if _, err := c.CreateSheet(spreadsheetID, tabTitle); err != nil {
		return "", fmt.Errorf("failed to create tab: %w", err)
	}

	valueRange := &sheets.ValueRange{Values: report.Values()}
	_, err = c.service.Spreadsheets.Values.Update(spreadsheetID, tabTitle+"!A1", valueRange).
		ValueInputOption("RAW").
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to write stats: %w", err)
	}

	return tabTitle, nil
}
