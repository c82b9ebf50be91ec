package exporters

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/terratensor/geohierarchy/internal/core/ports"
)

type WriterFactory struct{}

func NewWriterFactory() *WriterFactory {
	return &WriterFactory{}
}

func (f *WriterFactory) CreateWriter(w io.Writer, options ports.ExportOptions) (ports.TreeWriter, error) {
	switch options.Format {
	case ports.FormatJSON, "":
		return NewJSONWriter(w, options)
	case ports.FormatCSV:
		return NewCSVWriter(w, options)
	default:
		return nil, eris.Errorf("unsupported format: %s", options.Format)
	}
}

// CreateFileWriter создает writer для файла, перезаписывая существующий
func (f *WriterFactory) CreateFileWriter(filePath string, options ports.ExportOptions) (ports.TreeWriter, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create file")
	}

	writer, err := f.CreateWriter(file, options)
	if err != nil {
		file.Close()
		return nil, err
	}

	// Возвращаем composit writer который закроет и файл
	return &fileWriter{
		TreeWriter: writer,
		file:       file,
	}, nil
}

type fileWriter struct {
	ports.TreeWriter
	file *os.File
}

func (w *fileWriter) Close() error {
	if err := w.TreeWriter.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
