package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andreyxaxa/Spectra/internal/controller/restapi/v1/response"
	"github.com/andreyxaxa/Spectra/internal/controller/restapi/v1/validate"
	"github.com/andreyxaxa/Spectra/internal/dto"
	"github.com/andreyxaxa/Spectra/internal/entity"
	"github.com/andreyxaxa/Spectra/pkg/logger"
	"github.com/andreyxaxa/Spectra/pkg/types/errs"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type imageUseCaseMock struct {
	mock.Mock
}

func (m *imageUseCaseMock) Upload(ctx context.Context, userID, filename string, data []byte) (*entity.Image, error) {
	args := m.Called(ctx, userID, filename, data)
	image, _ := args.Get(0).(*entity.Image)
	return image, args.Error(1)
}

func (m *imageUseCaseMock) FetchContent(ctx context.Context, id uuid.UUID) (*dto.Content, error) {
	args := m.Called(ctx, id)
	content, _ := args.Get(0).(*dto.Content)
	return content, args.Error(1)
}

func (m *imageUseCaseMock) GetByID(ctx context.Context, id uuid.UUID) (*entity.Image, error) {
	args := m.Called(ctx, id)
	image, _ := args.Get(0).(*entity.Image)
	return image, args.Error(1)
}

func (m *imageUseCaseMock) List(ctx context.Context, page entity.Page) (*entity.ImagePage, error) {
	args := m.Called(ctx, page)
	images, _ := args.Get(0).(*entity.ImagePage)
	return images, args.Error(1)
}

func (m *imageUseCaseMock) Search(ctx context.Context, tags []string) ([]*entity.Image, error) {
	args := m.Called(ctx, tags)
	images, _ := args.Get(0).([]*entity.Image)
	return images, args.Error(1)
}

func (m *imageUseCaseMock) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata dto.Metadata) (*entity.Image, error) {
	args := m.Called(ctx, id, metadata)
	image, _ := args.Get(0).(*entity.Image)
	return image, args.Error(1)
}

func newTestApp(uc *imageUseCaseMock) *fiber.App {
	app := fiber.New(fiber.Config{BodyLimit: 12 * 1024 * 1024})
	NewImageRoutes(app.Group("/api"), uc, logger.Nop())
	return app
}

func multipartRequest(t *testing.T, filename string, data []byte, userID string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/images/upload", &body)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	return req
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func sampleImage() *entity.Image {
	thumb := "u1/abc-cat-thumb.png"
	return &entity.Image{
		ID:               uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2"),
		UserID:           "u1",
		OriginalFilename: "cat.png",
		StorageKey:       "u1/abc-cat.png",
		ThumbnailKey:     &thumb,
		Tags:             []string{"pet"},
		CreatedAt:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestUploadImage(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		uc := &imageUseCaseMock{}
		image := sampleImage()
		uc.On("Upload", mock.Anything, "u1", "cat.png", []byte("png-bytes")).Return(image, nil)

		resp, err := newTestApp(uc).Test(multipartRequest(t, "cat.png", []byte("png-bytes"), "u1"), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		assert.Equal(t, image.ID.String(), decodeBody[response.Upload](t, resp).ID)
		uc.AssertExpectations(t)
	})

	t.Run("missing user header", func(t *testing.T) {
		uc := &imageUseCaseMock{}

		resp, err := newTestApp(uc).Test(multipartRequest(t, "cat.png", []byte("x"), ""), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		uc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing file", func(t *testing.T) {
		resp, err := newTestApp(&imageUseCaseMock{}).Test(multipartRequest(t, "", nil, "u1"), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("empty file", func(t *testing.T) {
		resp, err := newTestApp(&imageUseCaseMock{}).Test(multipartRequest(t, "cat.png", nil, "u1"), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "file is empty", decodeBody[response.Error](t, resp).Message)
	})

	t.Run("too large", func(t *testing.T) {
		data := bytes.Repeat([]byte{1}, int(validate.MaxFileSize)+1)

		resp, err := newTestApp(&imageUseCaseMock{}).Test(multipartRequest(t, "big.png", data, "u1"), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	})

	t.Run("invalid user", func(t *testing.T) {
		uc := &imageUseCaseMock{}
		uc.On("Upload", mock.Anything, "../x", "cat.png", mock.Anything).
			Return(nil, fmt.Errorf("wrapped: %w", errs.ErrInvalidUser))

		resp, err := newTestApp(uc).Test(multipartRequest(t, "cat.png", []byte("x"), "../x"), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("step failure names the step", func(t *testing.T) {
		uc := &imageUseCaseMock{}
		uc.On("Upload", mock.Anything, "u1", "cat.png", mock.Anything).
			Return(nil, fmt.Errorf("ImageUseCase - Upload: %w: %w", errs.ErrMetadataCreateFailed, io.ErrUnexpectedEOF))

		resp, err := newTestApp(uc).Test(multipartRequest(t, "cat.png", []byte("x"), "u1"), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Contains(t, decodeBody[response.Error](t, resp).Message, "metadata create failed")
	})
}

func TestListImages(t *testing.T) {
	t.Run("page", func(t *testing.T) {
		uc := &imageUseCaseMock{}
		uc.On("List", mock.Anything, entity.Page{Number: 2, Size: 5}).Return(&entity.ImagePage{
			Items: []*entity.Image{sampleImage()},
			Total: 11,
		}, nil)

		resp, err := newTestApp(uc).Test(httptest.NewRequest(http.MethodGet, "/api/images?page=2&size=5", nil), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "11", resp.Header.Get("X-Total-Count"))

		images := decodeBody[[]response.Image](t, resp)
		require.Len(t, images, 1)
		assert.Equal(t, "u1/abc-cat.png", images[0].StorageURL)
		assert.Equal(t, "2026-01-02T03:04:05Z", images[0].CreatedAt)
	})

	t.Run("fails open", func(t *testing.T) {
		uc := &imageUseCaseMock{}
		uc.On("List", mock.Anything, entity.Page{Number: 0, Size: validate.DefaultPageSize}).
			Return(nil, context.DeadlineExceeded)

		resp, err := newTestApp(uc).Test(httptest.NewRequest(http.MethodGet, "/api/images", nil), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.JSONEq(t, "[]", string(b))
	})

	t.Run("invalid paging", func(t *testing.T) {
		resp, err := newTestApp(&imageUseCaseMock{}).Test(httptest.NewRequest(http.MethodGet, "/api/images?size=0", nil), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSearchImages(t *testing.T) {
	uc := &imageUseCaseMock{}
	uc.On("Search", mock.Anything, []string{"pet", " sky"}).Return([]*entity.Image{sampleImage()}, nil)

	resp, err := newTestApp(uc).Test(httptest.NewRequest(http.MethodGet, "/api/images/search?tags=pet,%20sky", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	images := decodeBody[[]response.Image](t, resp)
	require.Len(t, images, 1)
	assert.Equal(t, []string{"pet"}, images[0].Tags)
	assert.Equal(t, []string{}, images[0].Palette)
	uc.AssertExpectations(t)
}

func TestGetImageContent(t *testing.T) {
	id := uuid.New()

	t.Run("ok", func(t *testing.T) {
		uc := &imageUseCaseMock{}
		uc.On("FetchContent", mock.Anything, id).Return(&dto.Content{Data: []byte("raw"), ContentType: "image/png"}, nil)

		resp, err := newTestApp(uc).Test(httptest.NewRequest(http.MethodGet, "/api/images/content/"+id.String(), nil), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "raw", string(b))
	})

	for name, cause := range map[string]error{
		"no record": errs.ErrRecordNotFound,
		"no blob":   errs.ErrBlobNotFound,
	} {
		t.Run(name, func(t *testing.T) {
			uc := &imageUseCaseMock{}
			uc.On("FetchContent", mock.Anything, id).Return(nil, fmt.Errorf("wrapped: %w", cause))

			resp, err := newTestApp(uc).Test(httptest.NewRequest(http.MethodGet, "/api/images/content/"+id.String(), nil), -1)
			require.NoError(t, err)

			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	}

	t.Run("invalid id", func(t *testing.T) {
		resp, err := newTestApp(&imageUseCaseMock{}).Test(httptest.NewRequest(http.MethodGet, "/api/images/content/nope", nil), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetImage(t *testing.T) {
	image := sampleImage()

	t.Run("ok", func(t *testing.T) {
		uc := &imageUseCaseMock{}
		uc.On("GetByID", mock.Anything, image.ID).Return(image, nil)

		resp, err := newTestApp(uc).Test(httptest.NewRequest(http.MethodGet, "/api/images/"+image.ID.String(), nil), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		got := decodeBody[response.Image](t, resp)
		require.NotNil(t, got.ThumbnailURL)
		assert.Equal(t, "u1/abc-cat-thumb.png", *got.ThumbnailURL)
	})

	t.Run("not found", func(t *testing.T) {
		uc := &imageUseCaseMock{}
		uc.On("GetByID", mock.Anything, image.ID).Return(nil, errs.ErrRecordNotFound)

		resp, err := newTestApp(uc).Test(httptest.NewRequest(http.MethodGet, "/api/images/"+image.ID.String(), nil), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestUpdateMetadata(t *testing.T) {
	image := sampleImage()
	body := `{"tags":["pet","cat"],"palette":["#000000"]}`
	want := dto.Metadata{Tags: []string{"pet", "cat"}, Palette: []string{"#000000"}}

	for _, method := range []string{http.MethodPut, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			uc := &imageUseCaseMock{}
			uc.On("UpdateMetadata", mock.Anything, image.ID, want).Return(image, nil)

			req := httptest.NewRequest(method, "/api/images/"+image.ID.String()+"/metadata", strings.NewReader(body))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

			resp, err := newTestApp(uc).Test(req, -1)
			require.NoError(t, err)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			uc.AssertExpectations(t)
		})
	}

	t.Run("not found", func(t *testing.T) {
		uc := &imageUseCaseMock{}
		uc.On("UpdateMetadata", mock.Anything, image.ID, want).Return(nil, errs.ErrRecordNotFound)

		req := httptest.NewRequest(http.MethodPut, "/api/images/"+image.ID.String()+"/metadata", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

		resp, err := newTestApp(uc).Test(req, -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/images/"+image.ID.String()+"/metadata", strings.NewReader("{"))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

		resp, err := newTestApp(&imageUseCaseMock{}).Test(req, -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
