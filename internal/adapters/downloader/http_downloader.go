package downloader

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/terratensor/geohierarchy/internal/config"
)

// TransportError means a remote archive could not be fetched.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: HTTP status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ExtractionError means an archive is missing or corrupt.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

const partSuffix = ".part"

type Downloader struct {
	client *http.Client
	cfg    *config.Config
}

func New(cfg *config.Config) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: cfg.DownloadTimeout,
		},
		cfg: cfg,
	}
}

// Fetch downloads remoteName from the GeoNames dump into the data directory.
// An existing local copy is reused unless Overwrite is set.
func (d *Downloader) Fetch(ctx context.Context, remoteName string) (string, error) {
	url := d.cfg.GeonamesBaseURL + remoteName
	localPath := filepath.Join(d.cfg.DataDir, remoteName)

	if err := os.MkdirAll(d.cfg.DataDir, 0o755); err != nil {
		return "", eris.Wrap(err, "failed to create data dir")
	}

	if _, err := os.Stat(localPath); err == nil {
		if !d.cfg.Overwrite {
			zap.L().Info("local file exists, skipping download", zap.String("path", localPath))
			return localPath, nil
		}
		zap.L().Info("local file exists, overwriting", zap.String("path", localPath))
		if err := os.Remove(localPath); err != nil {
			return "", eris.Wrapf(err, "failed to remove %s", localPath)
		}
	}

	zap.L().Info("download started", zap.String("url", url), zap.String("path", localPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{URL: url, StatusCode: resp.StatusCode, Err: eris.New(resp.Status)}
	}

	out, err := os.Create(localPath)
	if err != nil {
		return "", eris.Wrap(err, "failed to create file")
	}

	// Недокачанный файл удаляем, иначе следующий запуск его пропустит
	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(localPath)
		}
	}()

	var dst io.Writer = out
	if d.cfg.ShowProgress {
		bar := progressbar.NewOptions64(
			resp.ContentLength,
			progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", remoteName)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(50),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				fmt.Println()
			}),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionFullWidth(),
		)
		dst = io.MultiWriter(out, bar)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return "", &TransportError{URL: url, Err: eris.Wrap(err, "failed to save file")}
	}
	if err := out.Close(); err != nil {
		return "", eris.Wrapf(err, "failed to close %s", localPath)
	}
	success = true

	zap.L().Info("download finished", zap.String("path", localPath))
	return localPath, nil
}

// Extract распаковывает zip архив в каталог данных и возвращает список файлов.
// Existing targets are kept unless Overwrite is set; directory entries are skipped.
func (d *Downloader) Extract(archivePath string) ([]string, error) {
	if _, err := os.Stat(archivePath); err != nil {
		return nil, &ExtractionError{Archive: archivePath, Err: eris.Wrap(err, "zip file not found")}
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, &ExtractionError{Archive: archivePath, Err: err}
	}
	defer reader.Close()

	var extracted []string
	for _, zipFile := range reader.File {
		if zipFile.FileInfo().IsDir() || strings.HasSuffix(zipFile.Name, "/") {
			zap.L().Debug("skipping directory entry", zap.String("entry", zipFile.Name))
			continue
		}

		destPath, err := d.extractEntry(zipFile)
		if err != nil {
			return extracted, &ExtractionError{Archive: archivePath, Err: err}
		}
		extracted = append(extracted, destPath)
	}

	zap.L().Info("archive extracted", zap.String("archive", archivePath), zap.Int("files", len(extracted)))
	return extracted, nil
}

// extractEntry writes one archive member below the data directory.
func (d *Downloader) extractEntry(zipFile *zip.File) (string, error) {
	destDir := filepath.Clean(d.cfg.DataDir)
	destPath := filepath.Join(destDir, zipFile.Name)
	if !strings.HasPrefix(destPath, destDir+string(os.PathSeparator)) {
		return "", eris.Errorf("illegal path %q in archive", zipFile.Name)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "failed to create parent directory")
	}

	if _, err := os.Stat(destPath); err == nil {
		if !d.cfg.Overwrite {
			zap.L().Info("extracted file exists, skipping", zap.String("path", destPath))
			return destPath, nil
		}
		zap.L().Info("extracted file exists, overwriting", zap.String("path", destPath))
	}

	rc, err := zipFile.Open()
	if err != nil {
		return "", eris.Wrapf(err, "failed to open file %s in zip", zipFile.Name)
	}
	defer rc.Close()

	// Пишем во временный файл: недораспакованный файл не должен
	// выглядеть готовым при следующем запуске
	partPath := destPath + partSuffix
	out, err := os.Create(partPath)
	if err != nil {
		return "", eris.Wrapf(err, "failed to create output file %s", partPath)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(partPath)
		return "", eris.Wrapf(err, "failed to extract file %s", zipFile.Name)
	}
	if err := out.Close(); err != nil {
		os.Remove(partPath)
		return "", eris.Wrapf(err, "failed to close %s", partPath)
	}
	if err := os.Rename(partPath, destPath); err != nil {
		os.Remove(partPath)
		return "", eris.Wrapf(err, "failed to move %s into place", destPath)
	}

	zap.L().Info("extracted", zap.String("path", destPath))
	return destPath, nil
}
