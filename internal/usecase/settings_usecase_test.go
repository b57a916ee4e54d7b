package usecase

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memrepo "sulestate/internal/adapter/repository"
	"sulestate/internal/domain/entity"
	"sulestate/internal/domain/service"
	"sulestate/pkg/errors"
)

func TestGetSettingsFallsBackToDefaults(t *testing.T) {
	uc := NewSettingsUseCase(memrepo.NewMemoryStore(nil).Settings())

	settings, err := uc.GetSettings(context.Background())

	require.NoError(t, err)
	assert.Equal(t, entity.DefaultDisplayName, settings.DisplayName)
	assert.Equal(t, entity.DefaultTitle, settings.Title)
	assert.Equal(t, entity.DefaultAvatarURL, settings.AvatarURL)
}

func TestUpdateSettingsKeepsDefaultsForBlankFields(t *testing.T) {
	uc := NewSettingsUseCase(memrepo.NewMemoryStore(nil).Settings())
	ctx := context.Background()

	_, err := uc.UpdateSettings(ctx, UpdateSettingsInput{DisplayName: " Maria ", AvatarURL: "https://cdn/x.png"})
	require.NoError(t, err)

	settings, err := uc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Maria", settings.DisplayName)
	assert.Equal(t, "https://cdn/x.png", settings.AvatarURL)
	assert.Equal(t, entity.DefaultTitle, settings.Title)
}

type fakeObjectStorage struct {
	uploads map[string][]byte
}

func (s *fakeObjectStorage) Upload(ctx context.Context, file io.Reader, size int64, contentType, folder string) (*service.UploadResult, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	name := folder + "/avatar"
	s.uploads[name] = data
	return &service.UploadResult{URL: "https://storage.test/" + name, ObjectName: name, Size: int64(len(data))}, nil
}

func (s *fakeObjectStorage) Delete(ctx context.Context, objectName string) error {
	delete(s.uploads, objectName)
	return nil
}

func (s *fakeObjectStorage) Close() error { return nil }

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestUploadAvatarAcceptsImages(t *testing.T) {
	storage := &fakeObjectStorage{uploads: map[string][]byte{}}
	store := memrepo.NewMemoryStore(nil)
	uc := NewFileUseCase(storage, store.Uploads())
	ctx := context.Background()

	metadata, err := uc.UploadAvatar(ctx, UploadAvatarInput{
		Filename:   "me.png",
		Size:       int64(len(pngHeader)),
		UploadedBy: "admin-1",
		Content:    bytes.NewReader(pngHeader),
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", metadata.FileType)
	assert.Equal(t, "https://storage.test/avatars/avatar", metadata.URL)

	assert.NotEmpty(t, metadata.ID)
	assert.Equal(t, "admin-1", metadata.UploadedBy)
	assert.Contains(t, storage.uploads, metadata.ObjectName)
}

type failingUploadRepository struct{}

func (failingUploadRepository) Create(ctx context.Context, metadata *entity.FileMetadata) error {
	return errors.UpstreamUnavailable("Failed to create file metadata", stderrors.New("deadline exceeded"))
}

func TestUploadAvatarRemovesObjectWhenRecordFails(t *testing.T) {
	storage := &fakeObjectStorage{uploads: map[string][]byte{}}
	uc := NewFileUseCase(storage, failingUploadRepository{})

	_, err := uc.UploadAvatar(context.Background(), UploadAvatarInput{
		Filename: "me.png",
		Size:     int64(len(pngHeader)),
		Content:  bytes.NewReader(pngHeader),
	})

	assert.True(t, errors.Is(err, errors.CodeUpstreamUnavailable))
	assert.Empty(t, storage.uploads)
}

func TestUploadAvatarRejectsNonImages(t *testing.T) {
	uc := NewFileUseCase(&fakeObjectStorage{uploads: map[string][]byte{}}, memrepo.NewMemoryStore(nil).Uploads())

	_, err := uc.UploadAvatar(context.Background(), UploadAvatarInput{
		Filename: "notes.png",
		Size:     11,
		Content:  strings.NewReader("just text\n\n"),
	})

	assert.True(t, errors.Is(err, errors.CodeValidation))
}

func TestUploadAvatarRejectsLargeFiles(t *testing.T) {
	uc := NewFileUseCase(&fakeObjectStorage{uploads: map[string][]byte{}}, memrepo.NewMemoryStore(nil).Uploads())

	large := append(append([]byte{}, pngHeader...), make([]byte, MaxAvatarSize)...)
	_, err := uc.UploadAvatar(context.Background(), UploadAvatarInput{
		Filename: "big.png",
		Size:     0,
		Content:  bytes.NewReader(large),
	})

	assert.True(t, errors.Is(err, errors.CodeValidation))
}

func TestUploadAvatarWithoutStorage(t *testing.T) {
	uc := NewFileUseCase(nil, memrepo.NewMemoryStore(nil).Uploads())

	_, err := uc.UploadAvatar(context.Background(), UploadAvatarInput{Content: bytes.NewReader(pngHeader)})

	assert.True(t, errors.Is(err, errors.CodeNotConfigured))
}
