// Package provenance keeps the append-only per-run audit trail. One text line
// per pipeline run, in the same bracketed format the operations dashboard has
// parsed since the first deployment, so history written by older versions
// stays readable.
package provenance

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
)

// Entry is one pipeline run. Append-only; entries are never rewritten.
type Entry struct {
	Timestamp time.Time
	Source    string // basename of the consumed input file
	Accuracy  string // "97.23%" or "N/A" when no ground truth was available
	Rows      int
	Duration  float64 // seconds
}

// AccuracyNA is recorded when the run had no labeled data to evaluate.
const AccuracyNA = "N/A"

const timeLayout = "2006-01-02 15:04:05"

// lineRe parses the fixed line format:
// [2025-11-03 14:22:01] Predicted: fetched_logs_x.csv, Accuracy: 97.23%, Rows: 812, Duration: 1.42 sec
var lineRe = regexp.MustCompile(`^\[(.+?)\] Predicted: (.*?), Accuracy: (.*?), Rows: (\d+), Duration: ([0-9.]+) sec$`)

// FormatLine renders an entry in the archive log line format.
func FormatLine(e Entry) string {
	return fmt.Sprintf("[%s] Predicted: %s, Accuracy: %s, Rows: %d, Duration: %.2f sec",
		e.Timestamp.Format(timeLayout), e.Source, e.Accuracy, e.Rows, e.Duration)
}

// ParseLine parses one archive log line. Returns false for malformed lines.
func ParseLine(line string) (Entry, bool) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, false
	}
	ts, err := time.Parse(timeLayout, m[1])
	if err != nil {
		return Entry{}, false
	}
	rows, err := strconv.Atoi(m[4])
	if err != nil {
		return Entry{}, false
	}
	dur, err := strconv.ParseFloat(m[5], 64)
	if err != nil {
		return Entry{}, false
	}
	return Entry{Timestamp: ts, Source: m[2], Accuracy: m[3], Rows: rows, Duration: dur}, true
}

// Logger appends run entries to a persistent text log and reads them back.
type Logger struct {
	Path string
}

// NewLogger returns a logger writing to the given file path.
func NewLogger(path string) *Logger {
	return &Logger{Path: path}
}

// Append writes one entry as a new line at the end of the log.
func (l *Logger) Append(e Entry) error {
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open archive log: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, FormatLine(e)); err != nil {
		return fmt.Errorf("append archive log: %w", err)
	}
	return nil
}

// Read returns the last n entries, oldest first. Malformed historical lines
// are skipped, not fatal; a missing log file reads as empty history.
func (l *Logger) Read(n int) ([]Entry, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open archive log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if e, ok := ParseLine(scanner.Text()); ok {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read archive log: %w", err)
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
