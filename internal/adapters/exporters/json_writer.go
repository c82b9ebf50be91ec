package exporters

import (
	"encoding/json"
	"io"

	"github.com/terratensor/geohierarchy/internal/core/domain"
	"github.com/terratensor/geohierarchy/internal/core/ports"
)

// JSONWriter writes a tree as one JSON document keyed by geoname id.
type JSONWriter struct {
	encoder *json.Encoder
}

func NewJSONWriter(w io.Writer, options ports.ExportOptions) (*JSONWriter, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if options.Indent != "" {
		enc.SetIndent("", options.Indent)
	}
	return &JSONWriter{encoder: enc}, nil
}

func (w *JSONWriter) WriteTree(tree *domain.Tree) error {
	return w.encoder.Encode(tree)
}

func (w *JSONWriter) Close() error {
	return nil
}
