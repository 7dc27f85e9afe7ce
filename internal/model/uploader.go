package model

import "context"

type Uploader interface {
	Upload(ctx context.Context, report Report) error
}

type UploadCloser interface {
	Uploader
	Close() error
}
