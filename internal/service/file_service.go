package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"vocata/internal/dao"
	"vocata/internal/model"
	"vocata/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MaxUploadSize = 10 << 20

	PurposeAvatar = "avatar"
	PurposeImage  = "image"
)

var (
	ErrFileTooLarge    = errors.New("file exceeds 10MB")
	ErrFileType        = errors.New("unsupported file type")
	ErrFilePurpose     = errors.New("unsupported file purpose")
	ErrFileNotFound    = errors.New("file not found")
	allowedImageTypes  = map[string]bool{"image/jpeg": true, "image/png": true, "image/gif": true, "image/webp": true}
	allowedUploadTypes = map[string]map[string]bool{PurposeAvatar: allowedImageTypes, PurposeImage: allowedImageTypes}
)

type FileService interface {
	// UploadFile 校验类型与大小后写入对象存储并保存记录
	UploadFile(ctx context.Context, userID uint, fileHeader *multipart.FileHeader, file multipart.File, purpose string) (*model.File, error)
	DeleteFile(ctx context.Context, userID uint, fileID string) error
	GetFile(ctx context.Context, userID uint, fileID string) (*model.File, error)
	PageList(ctx context.Context, userID uint, purpose string, page, size int) ([]*model.File, int64, error)
}

type fileService struct {
	fileDao dao.FileDao
	storage storage.Storage
	logger  *zap.Logger
}

func NewFileService(fileDao dao.FileDao, store storage.Storage, logger *zap.Logger) FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &fileService{fileDao: fileDao, storage: store, logger: logger.Named("file")}
}

func (fs *fileService) UploadFile(ctx context.Context, userID uint, fileHeader *multipart.FileHeader, file multipart.File, purpose string) (*model.File, error) {
	if purpose == "" {
		purpose = PurposeImage
	}
	allowed, ok := allowedUploadTypes[purpose]
	if !ok {
		return nil, ErrFilePurpose
	}
	if fileHeader.Size > MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	// 多读一个字节判断是否超限
	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	// 以文件内容为准，不信任客户端声明的类型
	contentType := http.DetectContentType(data)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if !allowed[contentType] {
		return nil, ErrFileType
	}

	url, err := fs.storage.Put(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	f := &model.File{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        fileHeader.Filename,
		Size:        int64(len(data)),
		ContentType: contentType,
		URL:         url,
		Purpose:     purpose,
	}
	if err := fs.fileDao.Create(ctx, f); err != nil {
		// 回滚已上传的对象
		if _, derr := fs.storage.Delete(ctx, url); derr != nil {
			fs.logger.Warn("rollback uploaded object failed", zap.String("url", url), zap.Error(derr))
		}
		return nil, err
	}
	return f, nil
}

func (fs *fileService) DeleteFile(ctx context.Context, userID uint, fileID string) error {
	f, err := fs.GetFile(ctx, userID, fileID)
	if err != nil {
		return err
	}
	if _, err := fs.storage.Delete(ctx, f.URL); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete stored object: %w", err)
	}
	return fs.fileDao.Delete(ctx, userID, fileID)
}

func (fs *fileService) GetFile(ctx context.Context, userID uint, fileID string) (*model.File, error) {
	f, err := fs.fileDao.GetByID(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrFileNotFound
	}
	return f, nil
}

func (fs *fileService) PageList(ctx context.Context, userID uint, purpose string, page, size int) ([]*model.File, int64, error) {
	return fs.fileDao.Page(ctx, userID, purpose, page, size)
}
