package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/CZERTAINLY/golinter/internal/model"
	"github.com/CZERTAINLY/golinter/internal/parallel"
)

// WriteUploader prints findings to a writer, one per line or as a JSON report.
type WriteUploader struct {
	w      io.Writer
	format string
}

func NewWriteUploader(w io.Writer, format string) WriteUploader {
	return WriteUploader{w: w, format: format}
}

func (u WriteUploader) Upload(_ context.Context, report model.Report) error {
	if u.w == nil {
		u.w = os.Stdout
	}
	if u.format == model.FormatJSON {
		return json.NewEncoder(u.w).Encode(report)
	}
	for _, f := range report.Findings {
		if _, err := fmt.Fprintln(u.w, f.String()); err != nil {
			return err
		}
	}
	return nil
}

// OSRootUploader stores every report as a JSON file inside a directory.
type OSRootUploader struct {
	root *os.Root
}

func NewOSRootUploader(path string) (*OSRootUploader, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}
	root, err := os.OpenRoot(path)
	if err != nil {
		return nil, err
	}
	return &OSRootUploader{root: root}, nil
}

func (u *OSRootUploader) Upload(ctx context.Context, report model.Report) error {
	if u.root == nil {
		return errors.New("root already closed")
	}

	stamp := report.Stopped
	if stamp.IsZero() {
		stamp = time.Now()
	}
	path := "golinter-" + stamp.Format("2006-01-02-15-04-05")
	if len(report.RunID) >= 8 {
		path += "-" + report.RunID[:8]
	}
	path += ".json"

	f, err := u.root.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		_ = f.Close()
		return fmt.Errorf("saving report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing report: %w", err)
	}
	slog.InfoContext(ctx, "report saved", "path", path, "findings", len(report.Findings))
	return nil
}

func (u *OSRootUploader) Close() error {
	if u.root == nil {
		return errors.New("uploader already closed")
	}
	err := u.root.Close()
	u.root = nil
	return err
}

// Uploaders returns the uploaders configured in cfg. Findings go to w
// when neither a directory nor a repository is configured.
func Uploaders(cfg model.Service, w io.Writer) ([]model.Uploader, error) {
	repo := cfg.Repository != nil && cfg.Repository.Enabled
	if cfg.Dir == "" && !repo {
		return []model.Uploader{NewWriteUploader(w, cfg.Format)}, nil
	}

	var uploaders []model.Uploader
	if cfg.Dir != "" {
		u, err := NewOSRootUploader(cfg.Dir)
		if err != nil {
			return nil, err
		}
		uploaders = append(uploaders, u)
	}
	if repo {
		u, err := NewReportRepoUploader(cfg.Repository.URL)
		if err != nil {
			CloseUploaders(context.Background(), uploaders)
			return nil, err
		}
		uploaders = append(uploaders, u)
	}
	return uploaders, nil
}

// CloseUploaders closes uploaders implementing model.UploadCloser.
func CloseUploaders(ctx context.Context, uploaders []model.Uploader) {
	for _, uploader := range uploaders {
		if closer, ok := uploader.(model.UploadCloser); ok {
			if err := closer.Close(); err != nil {
				slog.ErrorContext(ctx, "closing uploader have failed", "error", err)
			}
		}
	}
}

// Upload sends report to all uploaders at once and joins their errors.
func Upload(ctx context.Context, uploaders []model.Uploader, report model.Report) error {
	errs := parallel.Each(ctx, len(uploaders), uploaders, func(ctx context.Context, u model.Uploader) error {
		return u.Upload(ctx, report)
	})
	return errors.Join(errs...)
}
