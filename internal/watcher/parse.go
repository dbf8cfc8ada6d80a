package watcher

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/harborml/harbor/internal/dataset"
	"github.com/harborml/harbor/internal/shared/errors"
)

// maxLineSize bounds a single line-delimited record. Matches the publish
// payload ceiling so a record that fits on the wire fits in the parser.
const maxLineSize = 10_000_000

// ParseFile reads a watched file into a record batch, selecting the parser by
// filename suffix. Line-delimited JSON (.jsonl, .ndjson) and tabular CSV
// (.csv) are supported; anything else fails with ErrUnsupportedFileType.
func ParseFile(path string) ([]dataset.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return parseLines(f)
	case ".csv":
		return parseTabular(f)
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), errors.ErrUnsupportedFileType)
	}
}

// parseLines decodes one JSON record per line. Blank lines are tolerated.
func parseLines(r io.Reader) ([]dataset.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	records := make([]dataset.Record, 0)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec dataset.Record
		if err := rec.UnmarshalJSON([]byte(text)); err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", line, err, errors.ErrParse)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %v: %w", err, errors.ErrParse)
	}
	return records, nil
}

// parseTabular decodes a delimited file with a header row. The id, text and
// embedding columns map onto the record's conventional fields; every other
// column becomes a tag. Embeddings are semicolon-separated floats, since the
// comma delimits cells.
func parseTabular(r io.Reader) ([]dataset.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return []dataset.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %v: %w", err, errors.ErrParse)
	}

	records := make([]dataset.Record, 0)
	row := 1
	for {
		cells, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("row %d: %v: %w", row, err, errors.ErrParse)
		}

		var rec dataset.Record
		for i, cell := range cells {
			if i >= len(header) {
				break
			}
			switch strings.ToLower(header[i]) {
			case "id":
				rec.ID = cell
			case "text":
				rec.Text = cell
			case "embedding":
				vec, err := parseEmbedding(cell)
				if err != nil {
					return nil, fmt.Errorf("row %d: %v: %w", row, err, errors.ErrParse)
				}
				rec.Embedding = vec
			default:
				if cell == "" {
					continue
				}
				if rec.Tags == nil {
					rec.Tags = make(map[string]string)
				}
				rec.Tags[header[i]] = cell
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseEmbedding(cell string) ([]float32, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}
	parts := strings.Split(cell, ";")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("embedding component %d: %v", i, err)
		}
		vec[i] = float32(v)
	}
	return vec, nil
}
