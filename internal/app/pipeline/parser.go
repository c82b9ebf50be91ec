package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/terratensor/geohierarchy/internal/config"
)

const maxLineSize = 1024 * 1024

// ParseError reports a record that could not be parsed. File and Line are
// filled in by the reader; line parsers only set Field, Value and Err.
type ParseError struct {
	File  string
	Line  int64
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	loc := e.File
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.File, e.Line)
	}
	if loc == "" {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: invalid %s %q: %v", loc, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// BaseParser contains common functionality for all parsers
type BaseParser struct {
	showProgress bool
}

func NewBaseParser(cfg *config.Config) *BaseParser {
	return &BaseParser{
		showProgress: cfg.ShowProgress,
	}
}

// ProgressBar creates a progress bar for file processing
func (p *BaseParser) ProgressBar(file *os.File, description string) (*progressbar.ProgressBar, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, eris.Wrap(err, "failed to get file stats")
	}

	return progressbar.NewOptions64(
		stat.Size(),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
	), nil
}

// parseID parses a signed 64-bit GeoNames identifier.
func parseID(field, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &ParseError{Field: field, Value: s, Err: err}
	}
	return id, nil
}

// records lazily parses path line by line. The first failure is yielded and
// ends the sequence; ranging again reopens the file.
func records[T any](p *BaseParser, path string, parse func(line string) (T, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		file, err := os.Open(path)
		if err != nil {
			yield(zero, eris.Wrapf(err, "failed to open file %s", path))
			return
		}
		defer file.Close()

		var r io.Reader = file
		if p.showProgress {
			bar, err := p.ProgressBar(file, fmt.Sprintf("Processing %s", filepath.Base(path)))
			if err != nil {
				yield(zero, err)
				return
			}
			defer bar.Finish()
			r = io.TeeReader(file, bar)
		}

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		var lineNum int64
		for scanner.Scan() {
			lineNum++
			rec, err := parse(scanner.Text())
			if err != nil {
				yield(zero, locate(err, path, lineNum))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(zero, eris.Wrapf(err, "error reading file %s at line %d", path, lineNum+1))
		}
	}
}

func locate(err error, path string, line int64) error {
	var perr *ParseError
	if errors.As(err, &perr) {
		perr.File = path
		perr.Line = line
		return perr
	}
	return &ParseError{File: path, Line: line, Field: "record", Err: err}
}

// field returns the i-th tab-separated field, or "" when the line is too short.
func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

func splitTabs(line string) []string {
	return strings.Split(line, "\t")
}
