package v1

import (
	"github.com/andreyxaxa/Spectra/internal/usecase"
	"github.com/andreyxaxa/Spectra/pkg/logger"
	"github.com/gofiber/fiber/v2"
)

func NewImageRoutes(apiGroup fiber.Router, img usecase.ImageUseCase, l logger.Interface) {
	r := &V1{img: img, logger: l}

	images := apiGroup.Group("/images")
	{
		images.Post("/upload", r.uploadImage)
		images.Get("/", r.listImages)
		// static segments before /:imageId
		images.Get("/search", r.searchImages)
		images.Get("/content/:imageId", r.getImageContent)
		images.Get("/:imageId", r.getImage)
		images.Put("/:imageId/metadata", r.updateMetadata)
		images.Post("/:imageId/metadata", r.updateMetadata)
	}
}
