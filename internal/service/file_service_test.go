package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"testing"

	"vocata/internal/dao"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

// formFile 构造一个真实的 multipart 文件
func formFile(t *testing.T, name string, data []byte) (*multipart.FileHeader, multipart.File) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(MaxUploadSize * 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	fh := form.File["file"][0]
	f, err := fh.Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return fh, f
}

func newFileService(t *testing.T) (FileService, *memStore) {
	store := newMemStore()
	return NewFileService(dao.NewFileDao(newTestDB(t)), store, nil), store
}

func TestUploadAndDeleteFile(t *testing.T) {
	svc, store := newFileService(t)
	ctx := context.Background()

	fh, f := formFile(t, "avatar.png", append(append([]byte{}, pngHeader...), make([]byte, 64)...))
	file, err := svc.UploadFile(ctx, 3, fh, f, PurposeAvatar)
	require.NoError(t, err)
	assert.Equal(t, "image/png", file.ContentType)
	assert.Equal(t, "avatar.png", file.Name)
	assert.EqualValues(t, 80, file.Size)
	assert.Contains(t, store.objects, file.URL)

	list, total, err := svc.PageList(ctx, 3, PurposeAvatar, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)

	// 其他用户无法删除
	assert.ErrorIs(t, svc.DeleteFile(ctx, 4, file.ID), ErrFileNotFound)

	require.NoError(t, svc.DeleteFile(ctx, 3, file.ID))
	assert.NotContains(t, store.objects, file.URL)
	_, err = svc.GetFile(ctx, 3, file.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestUploadRejectsInvalidFiles(t *testing.T) {
	svc, store := newFileService(t)
	ctx := context.Background()

	fh, f := formFile(t, "notes.txt", []byte("just some plain text"))
	_, err := svc.UploadFile(ctx, 3, fh, f, PurposeImage)
	assert.ErrorIs(t, err, ErrFileType)

	fh, f = formFile(t, "a.png", pngHeader)
	_, err = svc.UploadFile(ctx, 3, fh, f, "document")
	assert.ErrorIs(t, err, ErrFilePurpose)

	fh, f = formFile(t, "big.png", append(append([]byte{}, pngHeader...), make([]byte, MaxUploadSize)...))
	_, err = svc.UploadFile(ctx, 3, fh, f, PurposeImage)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	assert.Empty(t, store.objects)
}

func TestUploadStorageFailure(t *testing.T) {
	svc, store := newFileService(t)
	store.failPut = true

	fh, f := formFile(t, "a.png", pngHeader)
	_, err := svc.UploadFile(context.Background(), 3, fh, f, "")
	assert.Error(t, err)
}
