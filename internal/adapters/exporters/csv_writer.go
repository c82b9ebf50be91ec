package exporters

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/terratensor/geohierarchy/internal/core/domain"
	"github.com/terratensor/geohierarchy/internal/core/ports"
)

var EdgeColumns = []string{
	"parent_id",
	"child_id",
	"child_name",
	"relation_type",
}

// CSVWriter writes a tree as a flat parent/child edge list.
type CSVWriter struct {
	writer  *csv.Writer
	options ports.ExportOptions
}

func NewCSVWriter(w io.Writer, options ports.ExportOptions) (*CSVWriter, error) {
	csvWriter := csv.NewWriter(w)
	if options.Delimiter != 0 {
		csvWriter.Comma = options.Delimiter
	} else {
		csvWriter.Comma = ',' // default
	}
	if options.RelationType == "" {
		options.RelationType = domain.RelationContains
	}

	return &CSVWriter{
		writer:  csvWriter,
		options: options,
	}, nil
}

func (w *CSVWriter) WriteTree(tree *domain.Tree) error {
	if w.options.IncludeHeader {
		if err := w.writer.Write(EdgeColumns); err != nil {
			return err
		}
	}

	row := make([]string, len(EdgeColumns))
	for _, edge := range tree.Edges(w.options.RelationType) {
		row[0] = strconv.FormatInt(edge.ParentID, 10)
		row[1] = strconv.FormatInt(edge.ChildID, 10)
		row[2] = edge.ChildName
		row[3] = edge.RelationType
		if err := w.writer.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func (w *CSVWriter) Close() error {
	w.writer.Flush()
	return w.writer.Error()
}
