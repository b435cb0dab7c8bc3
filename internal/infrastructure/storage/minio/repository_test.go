package minio

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propsignal/propsignal/internal/application/cma"
	"github.com/propsignal/propsignal/internal/config"
	"github.com/propsignal/propsignal/pkg/errors"
)

type fakeAPI struct {
	objects map[string][]byte
	putErr  error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{objects: make(map[string][]byte)}
}

func (f *fakeAPI) BucketExists(context.Context, string) (bool, error) { return true, nil }

func (f *fakeAPI) MakeBucket(context.Context, string, minio.MakeBucketOptions) error { return nil }

func (f *fakeAPI) PutObject(_ context.Context, _, objectName string, reader io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[objectName] = data
	return minio.UploadInfo{Key: objectName, Size: int64(len(data))}, nil
}

func (f *fakeAPI) GetObject(context.Context, string, string, minio.GetObjectOptions) (*minio.Object, error) {
	return nil, assert.AnError
}

func (f *fakeAPI) StatObject(_ context.Context, _, objectName string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	if _, ok := f.objects[objectName]; !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	}
	return minio.ObjectInfo{Key: objectName}, nil
}

func (f *fakeAPI) RemoveObject(_ context.Context, _, objectName string, _ minio.RemoveObjectOptions) error {
	delete(f.objects, objectName)
	return nil
}

func (f *fakeAPI) PresignedGetObject(_ context.Context, bucket, objectName string, _ time.Duration, _ url.Values) (*url.URL, error) {
	return url.Parse("https://storage.local/" + bucket + "/" + objectName + "?sig=abc")
}

func testArchive(api MinIOAPI) *ReportArchive {
	client := NewClientWithAPI(api, config.MinIOConfig{Bucket: "propsignal-reports"}, nil)
	return NewReportArchive(client, nil)
}

func testReport() *cma.Report {
	return &cma.Report{
		ID:        "rep-1",
		CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestReportArchive_Archive(t *testing.T) {
	api := newFakeAPI()
	archive := testArchive(api)

	key, err := archive.Archive(context.Background(), testReport())
	require.NoError(t, err)
	assert.Equal(t, "reports/2026/08/rep-1.json", key)

	var stored cma.Report
	require.NoError(t, json.Unmarshal(api.objects[key], &stored))
	assert.Equal(t, "rep-1", string(stored.ID))
}

func TestReportArchive_Archive_RejectsEmptyReport(t *testing.T) {
	archive := testArchive(newFakeAPI())

	_, err := archive.Archive(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
}

func TestReportArchive_Archive_UploadFailure(t *testing.T) {
	api := newFakeAPI()
	api.putErr = assert.AnError
	archive := testArchive(api)

	_, err := archive.Archive(context.Background(), testReport())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeReportArchive, errors.GetCode(err))
}

func TestReportArchive_Exists(t *testing.T) {
	api := newFakeAPI()
	archive := testArchive(api)

	key, err := archive.Archive(context.Background(), testReport())
	require.NoError(t, err)

	ok, err := archive.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = archive.Exists(context.Background(), "reports/2026/08/missing.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReportArchive_Delete(t *testing.T) {
	api := newFakeAPI()
	archive := testArchive(api)

	key, err := archive.Archive(context.Background(), testReport())
	require.NoError(t, err)
	require.NoError(t, archive.Delete(context.Background(), key))

	ok, err := archive.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReportArchive_PresignedURL(t *testing.T) {
	archive := testArchive(newFakeAPI())

	u, err := archive.PresignedURL(context.Background(), "rep-1", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, u, "reports/2026/08/rep-1.json")
}
