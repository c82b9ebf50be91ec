package ports

import (
	"io"

	"github.com/terratensor/geohierarchy/internal/core/domain"
)

type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
)

type ExportOptions struct {
	Format        ExportFormat
	IncludeHeader bool   // для CSV
	Delimiter     rune   // для CSV
	Indent        string // для JSON, пусто = компактный вывод
	RelationType  string // для CSV
}

// TreeWriter writes one hierarchy document.
type TreeWriter interface {
	WriteTree(tree *domain.Tree) error
	Close() error
}

// Factory for creating writers
type WriterFactory interface {
	CreateWriter(w io.Writer, options ExportOptions) (TreeWriter, error)
	CreateFileWriter(filePath string, options ExportOptions) (TreeWriter, error)
}
