package git

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const (
	fieldSeparator  = "\x1f"
	recordSeparator = "\x1e"
)

// FieldSchema maps caller-chosen field names to git pretty-format
// placeholders, e.g. {"author": "%an <%ae>", "body": "%B"}.
type FieldSchema map[string]string

// Record is one commit with the fields of a FieldSchema populated
type Record map[string]string

func (s FieldSchema) names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s FieldSchema) format(names []string) string {
	placeholders := make([]string, len(names))
	for i, name := range names {
		placeholders[i] = s[name]
	}
	return strings.Join(placeholders, "%x1f") + "%x1e"
}

// Log returns one record per commit in revRange, oldest first. A non-empty
// paths list restricts the walk to commits touching those paths.
func (c *CLI) Log(ctx context.Context, revRange string, schema FieldSchema, paths []string) ([]Record, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("log requires at least one field")
	}
	names := schema.names()
	args := []string{"log", "--reverse", "--no-color", "--format=" + schema.format(names), revRange}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	out, err := c.runner.RunRaw(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read log for %s: %w", revRange, err)
	}
	return parseLog(out, names)
}

func parseLog(out string, names []string) ([]Record, error) {
	var records []Record
	for _, chunk := range strings.Split(out, recordSeparator) {
		chunk = strings.TrimPrefix(chunk, "\n")
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		fields := strings.Split(chunk, fieldSeparator)
		if len(fields) != len(names) {
			return nil, fmt.Errorf("log record has %d fields, expected %d", len(fields), len(names))
		}
		record := make(Record, len(names))
		for i, name := range names {
			record[name] = fields[i]
		}
		records = append(records, record)
	}
	return records, nil
}
