package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/CZERTAINLY/golinter/internal/model"
)

const (
	uploadPath  = "api/v1/reports"
	contentType = "application/json"
)

// ReportRepoUploader posts lint reports to a remote collector.
type ReportRepoUploader struct {
	requestURL *url.URL
	client     *http.Client
}

func NewReportRepoUploader(serverURL string) (*ReportRepoUploader, error) {
	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")

	if parsedURL.Scheme == "" || parsedURL.Host == "" || parsedURL.Path != "" {
		return nil, errors.New("please define the server url with a scheme and without path, e.g. `http://some-url.com`")
	}
	parsedURL.Path = uploadPath

	return &ReportRepoUploader{
		requestURL: parsedURL,
		client:     &http.Client{},
	}, nil
}

func (c *ReportRepoUploader) Upload(ctx context.Context, report model.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL.String(), bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	created, err := decodeUploadResponse(resp)
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "report uploaded", slog.String("id", created.ID), slog.String("run_id", report.RunID))
	return nil
}

type ReportCreateResponse struct {
	ID string `json:"id"`
}

func decodeUploadResponse(resp *http.Response) (ReportCreateResponse, error) {
	switch resp.StatusCode {
	case http.StatusCreated, http.StatusAccepted:
		var rc ReportCreateResponse
		if resp.ContentLength == 0 {
			return rc, nil
		}
		ct, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		if err != nil || ct != "application/json" {
			return rc, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(&rc); err != nil && !errors.Is(err, io.EOF) {
			return ReportCreateResponse{}, fmt.Errorf("decoding json response failed: %w", err)
		}
		return rc, nil

	case http.StatusBadRequest, http.StatusConflict, http.StatusUnsupportedMediaType:
		ct, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		if err != nil {
			return ReportCreateResponse{}, fmt.Errorf("failed to parse response content type header: %w", err)
		}
		if ct != "application/problem+json" {
			return ReportCreateResponse{}, fmt.Errorf("expected `application/problem+json` content type, got: %s", ct)
		}
		var problemDetail struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&problemDetail); err != nil {
			return ReportCreateResponse{}, fmt.Errorf("decoding json response failed: %w", err)
		}
		return ReportCreateResponse{}, fmt.Errorf("status code: %d, detail: %s", resp.StatusCode, problemDetail.Detail)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ReportCreateResponse{}, err
	}
	return ReportCreateResponse{}, fmt.Errorf("unknown error, status: %d, body: %s", resp.StatusCode, string(respBody))
}
