package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vidbrief/vidbrief/internal/models"
	mongorepo "github.com/vidbrief/vidbrief/internal/repositories/mongo"
	"github.com/vidbrief/vidbrief/internal/storage"
	"github.com/vidbrief/vidbrief/internal/utils"
)

type VideoService interface {
	// Upload spools the file to local disk (where the pipeline reads it)
	// and mirrors it to object storage when one is configured.
	Upload(ctx context.Context, userID, originalName, contentType string, r io.Reader) (*models.Video, error)
	List(ctx context.Context, userID string, limit int) ([]models.Video, error)
}

// downloadURLTTL bounds how long a minted video link stays valid.
const downloadURLTTL = 15 * time.Minute

type videoService struct {
	videos   mongorepo.VideoRepository
	uploader storage.Uploader // nil when object storage is not configured
	signer   storage.Signer   // nil when object storage is not configured
	dir      string
	log      *logrus.Logger
}

func NewVideoService(videos mongorepo.VideoRepository, uploader storage.Uploader, signer storage.Signer, uploadDir string, log *logrus.Logger) VideoService {
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	return &videoService{videos: videos, uploader: uploader, signer: signer, dir: uploadDir, log: log}
}

func (s *videoService) Upload(ctx context.Context, userID, originalName, contentType string, r io.Reader) (*models.Video, error) {
	const op = "VideoService.Upload"

	if !strings.HasPrefix(contentType, "video/") {
		return nil, utils.E(utils.CodeInvalidArgument, op, "only video uploads are accepted", nil)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to prepare upload directory", err)
	}

	fileID := uuid.NewString()
	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".mp4"
	}
	filename := fileID + ext
	path := filepath.Join(s.dir, filename)

	dst, err := os.Create(path)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store upload", err)
	}
	size, err := io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, utils.E(utils.CodeInternal, op, "failed to store upload", err)
	}
	if size == 0 {
		_ = os.Remove(path)
		return nil, utils.E(utils.CodeInvalidArgument, op, "uploaded file is empty", nil)
	}

	storedURL := ""
	if s.uploader != nil {
		f, err := os.Open(path)
		if err == nil {
			storedURL, err = s.uploader.Upload(ctx, "videos/"+userID+"/"+filename, contentType, f)
			_ = f.Close()
		}
		if err != nil {
			// Local copy is the source of truth; mirroring is best effort.
			s.log.WithError(err).WithField("file_id", fileID).Warn("object storage mirror failed")
			storedURL = ""
		}
	}

	v := &models.Video{
		FileID:       fileID,
		UserID:       userID,
		Filename:     filename,
		OriginalName: originalName,
		FilePath:     path,
		StoredURL:    storedURL,
		FileSize:     size,
		Status:       "uploaded",
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.videos.Insert(ctx, v); err != nil {
		_ = os.Remove(path)
		return nil, utils.E(utils.CodeInternal, op, "failed to record upload", err)
	}

	s.log.WithFields(logrus.Fields{"file_id": fileID, "user_id": userID, "size": size}).Info("video uploaded")
	return v, nil
}

func (s *videoService) List(ctx context.Context, userID string, limit int) ([]models.Video, error) {
	const op = "VideoService.List"

	rows, err := s.videos.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list videos", err)
	}
	if s.signer != nil {
		for i := range rows {
			if rows[i].StoredURL == "" {
				continue
			}
			object := "videos/" + rows[i].UserID + "/" + rows[i].Filename
			url, err := s.signer.SignedGetURL(ctx, object, downloadURLTTL)
			if err != nil {
				s.log.WithError(err).WithField("file_id", rows[i].FileID).Warn("failed to sign download url")
				continue
			}
			rows[i].DownloadURL = url
		}
	}
	return rows, nil
}
