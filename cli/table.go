package cli

import (
	"fmt"
	"sort"
	"strings"
)

// Column controls how one key of a row set is rendered.
type Column struct {
	// Key is the row key; filled from the map key when empty.
	Key string
	// Title is the header text; defaults to the key with underscores
	// replaced by spaces.
	Title string
	// AlignRight right-justifies the column. Numbers read better that way.
	AlignRight bool
	// Format is a fmt verb applied to each value, e.g. "%.8f". Defaults
	// to "%v".
	Format string
	// Order overrides the title in the column sort.
	Order string
	// Width is the column width; computed from the data when zero.
	Width int
}

// Table renders rows of key -> value data as aligned plain text. When columns
// is nil every key found in the rows is rendered with defaults. Column order
// is stable: by Order when set, by title otherwise.
func Table(rows []map[string]interface{}, columns map[string]Column) string {
	if columns == nil {
		columns = make(map[string]Column)
		for _, row := range rows {
			for key := range row {
				columns[key] = Column{}
			}
		}
	}

	keys := make([]string, 0, len(columns))
	resolved := make(map[string]Column, len(columns))
	for key, column := range columns {
		if column.Key == "" {
			column.Key = key
		}
		if column.Title == "" {
			column.Title = strings.ReplaceAll(key, "_", " ")
		}
		if column.Format == "" {
			column.Format = "%v"
		}
		if column.Order == "" {
			column.Order = column.Title
		}
		if column.Width == 0 {
			width := len(column.Title)
			for _, row := range rows {
				if cell := formatCell(column, row); len(cell) > width {
					width = len(cell)
				}
			}
			column.Width = width
		}
		resolved[key] = column
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return resolved[keys[i]].Order < resolved[keys[j]].Order
	})

	var b strings.Builder
	for _, key := range keys {
		writeCell(&b, resolved[key], resolved[key].Title)
	}
	b.WriteByte('\n')
	for _, row := range rows {
		for _, key := range keys {
			writeCell(&b, resolved[key], formatCell(resolved[key], row))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// formatCell renders one value; keys absent from a row render empty.
func formatCell(column Column, row map[string]interface{}) string {
	value, ok := row[column.Key]
	if !ok {
		return ""
	}
	return fmt.Sprintf(column.Format, value)
}

func writeCell(b *strings.Builder, column Column, cell string) {
	if pad := column.Width - len(cell); pad > 0 {
		if column.AlignRight {
			b.WriteString(strings.Repeat(" ", pad))
			b.WriteString(cell)
		} else {
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", pad))
		}
	} else {
		b.WriteString(cell)
	}
	b.WriteByte(' ')
}
