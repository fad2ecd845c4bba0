package v1

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/andreyxaxa/Spectra/internal/controller/restapi/v1/request"
	"github.com/andreyxaxa/Spectra/internal/controller/restapi/v1/response"
	"github.com/andreyxaxa/Spectra/internal/controller/restapi/v1/validate"
	"github.com/andreyxaxa/Spectra/internal/dto"
	"github.com/andreyxaxa/Spectra/internal/entity"
	"github.com/andreyxaxa/Spectra/pkg/types/errs"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const HeaderUserID = "X-User-Id"

// @Summary  	Upload image
// @Description Stores the original, creates its metadata record and announces it for thumbnailing
// @Tags 		images
// @Accept 		mpfd
// @Produce 	json
// @Param 		X-User-Id header   string true "Uploader id"
// @Param 		file      formData file   true "Image file"
// @Success 	202 {object} response.Upload
// @Failure 	400 {object} response.Error "Empty file or invalid user"
// @Failure 	413 {object} response.Error "File too large"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/images/upload [post]
func (r *V1) uploadImage(ctx *fiber.Ctx) error {
	userID := ctx.Get(HeaderUserID)
	if userID == "" {
		return errorResponse(ctx, http.StatusBadRequest, "X-User-Id header is required")
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "file is required")
	}

	if file.Size == 0 {
		return errorResponse(ctx, http.StatusBadRequest, "file is empty")
	}

	if file.Size > validate.MaxFileSize {
		return errorResponse(ctx, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file size cant be more than %d bytes", validate.MaxFileSize))
	}

	fileReader, err := file.Open()
	if err != nil {
		r.logger.Error(err, "restapi - v1 - uploadImage")

		return errorResponse(ctx, http.StatusInternalServerError, "problems with opening the file")
	}
	defer fileReader.Close()

	data, err := io.ReadAll(fileReader)
	if err != nil {
		r.logger.Error(err, "restapi - v1 - uploadImage - io.ReadAll")

		return errorResponse(ctx, http.StatusInternalServerError, "problems with reading the file")
	}

	image, err := r.img.Upload(ctx.UserContext(), userID, file.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrEmptyPayload):
			return errorResponse(ctx, http.StatusBadRequest, "file is empty")
		case errors.Is(err, errs.ErrInvalidUser):
			return errorResponse(ctx, http.StatusBadRequest, "invalid user id")
		}
		r.logger.Error(err, "restapi - v1 - uploadImage")

		return errorResponse(ctx, http.StatusInternalServerError, uploadFailureMessage(err))
	}

	return ctx.Status(http.StatusAccepted).JSON(response.Upload{ID: image.ID.String()})
}

func uploadFailureMessage(err error) string {
	switch {
	case errors.Is(err, errs.ErrStorageWriteFailed):
		return "upload failed: storage write failed"
	case errors.Is(err, errs.ErrMetadataCreateFailed):
		return "upload failed: metadata create failed"
	case errors.Is(err, errs.ErrEventPublishFailed):
		return "upload failed: event publish failed"
	default:
		return "upload failed"
	}
}

// @Summary 	List images
// @Description Newest first. Total count is returned in X-Total-Count
// @Tags 		images
// @Produce 	json
// @Param 		page query int false "Zero-based page"
// @Param 		size query int false "Page size"
// @Success 	200 {array}  response.Image
// @Failure 	400 {object} response.Error "Invalid paging"
// @Router 		/images [get]
func (r *V1) listImages(ctx *fiber.Ctx) error {
	page, size, ok := validate.Page(ctx.Query("page"), ctx.Query("size"))
	if !ok {
		return errorResponse(ctx, http.StatusBadRequest,
			fmt.Sprintf("page must be >= 0 and size between 1 and %d", validate.MaxPageSize))
	}

	images, err := r.img.List(ctx.UserContext(), entity.Page{Number: page, Size: size})
	if err != nil {
		// listing fails open
		r.logger.Error(err, "restapi - v1 - listImages")

		return ctx.Status(http.StatusOK).JSON([]response.Image{})
	}

	ctx.Set("X-Total-Count", strconv.FormatInt(images.Total, 10))

	return ctx.Status(http.StatusOK).JSON(response.NewImages(images.Items))
}

// @Summary 	Search images by tags
// @Description Returns images carrying at least one of the tags
// @Tags 		images
// @Produce 	json
// @Param 		tags query string true "Comma separated tags"
// @Success 	200 {array}  response.Image
// @Failure 	400 {object} response.Error "Too many tags"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/images/search [get]
func (r *V1) searchImages(ctx *fiber.Ctx) error {
	tags := validate.Tags(ctx.Query("tags"))
	if len(tags) > validate.MaxTags {
		return errorResponse(ctx, http.StatusBadRequest, fmt.Sprintf("at most %d tags", validate.MaxTags))
	}

	images, err := r.img.Search(ctx.UserContext(), tags)
	if err != nil {
		r.logger.Error(err, "restapi - v1 - searchImages")

		return errorResponse(ctx, http.StatusInternalServerError, "search failed")
	}

	return ctx.Status(http.StatusOK).JSON(response.NewImages(images))
}

// @Summary 	Get image content
// @Description Streams the original bytes
// @Tags 		images
// @Produce 	image/jpeg,image/png,image/gif,image/webp,application/octet-stream
// @Param 		imageId path string true "Image ID(uuid)"
// @Success 	200 {file} 	binary
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	404 {object} response.Error "Image not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/images/content/{imageId} [get]
func (r *V1) getImageContent(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("imageId"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	content, err := r.img.FetchContent(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) || errors.Is(err, errs.ErrBlobNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "image not found")
		}
		r.logger.Error(err, "restapi - v1 - getImageContent")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	ctx.Set(fiber.HeaderContentType, content.ContentType)

	return ctx.Status(http.StatusOK).Send(content.Data)
}

// @Summary 	Get image metadata
// @Tags 		images
// @Produce 	json
// @Param 		imageId path string true "Image ID(uuid)"
// @Success 	200 {object} response.Image
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	404 {object} response.Error "Image not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/images/{imageId} [get]
func (r *V1) getImage(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("imageId"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	image, err := r.img.GetByID(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "image not found")
		}
		r.logger.Error(err, "restapi - v1 - getImage")

		return errorResponse(ctx, http.StatusInternalServerError, "database problems")
	}

	return ctx.Status(http.StatusOK).JSON(response.NewImage(image))
}

// @Summary 	Update image metadata
// @Description Replaces tags and palette
// @Tags 		images
// @Accept 		json
// @Produce 	json
// @Param 		imageId path string           true "Image ID(uuid)"
// @Param 		request body request.Metadata true "New metadata"
// @Success 	200 {object} response.Image
// @Failure 	400 {object} response.Error "Invalid ID or body"
// @Failure 	404 {object} response.Error "Image not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/images/{imageId}/metadata [put]
func (r *V1) updateMetadata(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("imageId"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	var body request.Metadata

	if err = ctx.BodyParser(&body); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid request body")
	}

	if len(body.Tags) > validate.MaxTags {
		return errorResponse(ctx, http.StatusBadRequest, fmt.Sprintf("at most %d tags", validate.MaxTags))
	}

	image, err := r.img.UpdateMetadata(ctx.UserContext(), id, dto.Metadata{
		Tags:    body.Tags,
		Palette: body.Palette,
	})
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "image not found")
		}
		r.logger.Error(err, "restapi - v1 - updateMetadata")

		return errorResponse(ctx, http.StatusInternalServerError, "database problems")
	}

	return ctx.Status(http.StatusOK).JSON(response.NewImage(image))
}
