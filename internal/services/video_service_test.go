package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/vidbrief/vidbrief/internal/models"
	"github.com/vidbrief/vidbrief/internal/utils"
)

type fakeVideoRepo struct {
	videos []models.Video
}

func (f *fakeVideoRepo) Insert(ctx context.Context, v *models.Video) error {
	f.videos = append(f.videos, *v)
	return nil
}

func (f *fakeVideoRepo) GetByFileID(ctx context.Context, fileID string) (*models.Video, error) {
	for i := range f.videos {
		if f.videos[i].FileID == fileID {
			v := f.videos[i]
			return &v, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (f *fakeVideoRepo) GetByPath(ctx context.Context, filePath string) (*models.Video, error) {
	for i := range f.videos {
		if f.videos[i].FilePath == filePath {
			v := f.videos[i]
			return &v, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (f *fakeVideoRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Video, error) {
	var rows []models.Video
	for i := range f.videos {
		if f.videos[i].UserID == userID {
			rows = append(rows, f.videos[i])
		}
		if limit > 0 && len(rows) == limit {
			break
		}
	}
	return rows, nil
}

type fakeUploader struct {
	objects []string
	err     error
}

func (f *fakeUploader) Upload(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.objects = append(f.objects, objectName)
	return "gs://bucket/" + objectName, nil
}

type fakeSigner struct {
	signed []string
	err    error
}

func (f *fakeSigner) SignedGetURL(ctx context.Context, objectName string, ttl time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.signed = append(f.signed, objectName)
	return "https://signed.example/" + objectName, nil
}

func TestVideoUpload_RejectsNonVideoContentType(t *testing.T) {
	t.Parallel()

	svc := NewVideoService(&fakeVideoRepo{}, nil, nil, t.TempDir(), quietLogger())
	_, err := svc.Upload(context.Background(), "u1", "notes.txt", "text/plain", strings.NewReader("hello"))
	if got := errCode(t, err); got != utils.CodeInvalidArgument {
		t.Fatalf("code=%v, want invalid argument", got)
	}
}

func TestVideoUpload_RejectsEmptyFile(t *testing.T) {
	t.Parallel()

	svc := NewVideoService(&fakeVideoRepo{}, nil, nil, t.TempDir(), quietLogger())
	_, err := svc.Upload(context.Background(), "u1", "clip.mp4", "video/mp4", strings.NewReader(""))
	if got := errCode(t, err); got != utils.CodeInvalidArgument {
		t.Fatalf("code=%v, want invalid argument", got)
	}
}

func TestVideoUpload_SpoolsAndRecords(t *testing.T) {
	t.Parallel()

	repo := &fakeVideoRepo{}
	svc := NewVideoService(repo, nil, nil, t.TempDir(), quietLogger())

	v, err := svc.Upload(context.Background(), "u1", "clip.mp4", "video/mp4", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if v.FileID == "" || v.FileSize != int64(len("payload")) {
		t.Fatalf("video = %+v", v)
	}
	if !strings.HasSuffix(v.Filename, ".mp4") {
		t.Fatalf("stored filename %q missing extension", v.Filename)
	}
	if len(repo.videos) != 1 {
		t.Fatalf("repo rows=%d, want 1", len(repo.videos))
	}
}

func TestVideoUpload_MirrorsToObjectStorage(t *testing.T) {
	t.Parallel()

	repo := &fakeVideoRepo{}
	up := &fakeUploader{}
	svc := NewVideoService(repo, up, nil, t.TempDir(), quietLogger())

	v, err := svc.Upload(context.Background(), "u1", "clip.mp4", "video/mp4", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if want := "videos/u1/" + v.Filename; len(up.objects) != 1 || up.objects[0] != want {
		t.Fatalf("uploaded objects=%v, want [%s]", up.objects, want)
	}
	if v.StoredURL == "" {
		t.Fatal("StoredURL empty after successful mirror")
	}
}

func TestVideoUpload_MirrorFailureKeepsLocalCopy(t *testing.T) {
	t.Parallel()

	repo := &fakeVideoRepo{}
	up := &fakeUploader{err: errors.New("bucket unavailable")}
	svc := NewVideoService(repo, up, nil, t.TempDir(), quietLogger())

	v, err := svc.Upload(context.Background(), "u1", "clip.mp4", "video/mp4", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if v.StoredURL != "" {
		t.Fatalf("StoredURL=%q after failed mirror, want empty", v.StoredURL)
	}
	if v.FilePath == "" {
		t.Fatal("local spool path missing")
	}
}

func TestVideoList_SignsStoredVideos(t *testing.T) {
	t.Parallel()

	repo := &fakeVideoRepo{videos: []models.Video{
		{FileID: "f1", UserID: "u1", Filename: "f1.mp4", StoredURL: "gs://bucket/videos/u1/f1.mp4"},
		{FileID: "f2", UserID: "u1", Filename: "f2.mp4"}, // mirror never completed
	}}
	signer := &fakeSigner{}
	svc := NewVideoService(repo, nil, signer, t.TempDir(), quietLogger())

	rows, err := svc.List(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%d, want 2", len(rows))
	}
	if want := "https://signed.example/videos/u1/f1.mp4"; rows[0].DownloadURL != want {
		t.Fatalf("DownloadURL=%q, want %q", rows[0].DownloadURL, want)
	}
	if rows[1].DownloadURL != "" {
		t.Fatalf("unmirrored video got DownloadURL=%q", rows[1].DownloadURL)
	}
	if len(signer.signed) != 1 || signer.signed[0] != "videos/u1/f1.mp4" {
		t.Fatalf("signed objects=%v", signer.signed)
	}
}

func TestVideoList_SigningFailureDegradesToNoURL(t *testing.T) {
	t.Parallel()

	repo := &fakeVideoRepo{videos: []models.Video{
		{FileID: "f1", UserID: "u1", Filename: "f1.mp4", StoredURL: "gs://bucket/videos/u1/f1.mp4"},
	}}
	signer := &fakeSigner{err: errors.New("iam: permission denied")}
	svc := NewVideoService(repo, nil, signer, t.TempDir(), quietLogger())

	rows, err := svc.List(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if rows[0].DownloadURL != "" {
		t.Fatalf("DownloadURL should be empty on signing failure, got %q", rows[0].DownloadURL)
	}
}
