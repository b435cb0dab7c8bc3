package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/propsignal/propsignal/internal/application/cma"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
	"github.com/propsignal/propsignal/pkg/errors"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// ReportArchive stores finished reports as JSON documents, one object per
// report, keyed by creation month.  It implements the archiver contract the
// worker drives off the report-completed event.
type ReportArchive struct {
	client *Client
	logger logging.Logger
}

// NewReportArchive constructs a ready-to-use ReportArchive.
func NewReportArchive(client *Client, logger logging.Logger) *ReportArchive {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ReportArchive{client: client, logger: logger.Named("report_archive")}
}

// objectKey shards archived reports by creation month so bucket listings
// stay manageable.
func objectKey(r *cma.Report) string {
	return fmt.Sprintf("reports/%04d/%02d/%s.json", r.CreatedAt.Year(), int(r.CreatedAt.Month()), r.ID)
}

// Archive uploads the report document and returns its object key.
func (a *ReportArchive) Archive(ctx context.Context, r *cma.Report) (string, error) {
	if r == nil || r.ID == "" {
		return "", errors.New(errors.ErrCodeValidation, "cannot archive an empty report")
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode report document")
	}

	key := objectKey(r)
	_, err = a.client.api.PutObject(ctx, a.client.Bucket(), key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeReportArchive, "failed to upload report document")
	}

	a.logger.Info("report archived",
		logging.String("report_id", string(r.ID)),
		logging.String("object_key", key),
		logging.Int("bytes", len(data)),
	)
	return key, nil
}

// Download fetches an archived report document by object key.
func (a *ReportArchive) Download(ctx context.Context, key string) (*cma.Report, error) {
	obj, err := a.client.api.GetObject(ctx, a.client.Bucket(), key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to open archived report")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to read archived report")
	}
	var r cma.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode archived report")
	}
	return &r, nil
}

// Exists reports whether a report has been archived under the key.
func (a *ReportArchive) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.client.api.StatObject(ctx, a.client.Bucket(), key, minio.StatObjectOptions{})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeStorageError, "failed to stat archived report")
	}
	return true, nil
}

// Delete removes an archived document; used when a report is deleted.
func (a *ReportArchive) Delete(ctx context.Context, key string) error {
	err := a.client.api.RemoveObject(ctx, a.client.Bucket(), key, minio.RemoveObjectOptions{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to delete archived report")
	}
	return nil
}

// PresignedURL returns a time-limited download link for an archived report.
func (a *ReportArchive) PresignedURL(ctx context.Context, reportID common.ID, createdAt time.Time) (string, error) {
	key := objectKey(&cma.Report{ID: reportID, CreatedAt: createdAt})
	u, err := a.client.api.PresignedGetObject(ctx, a.client.Bucket(), key, a.client.PresignExpiry(), nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "failed to presign report url")
	}
	return u.String(), nil
}
