package v1

import (
	"github.com/andreyxaxa/Spectra/internal/usecase"
	"github.com/andreyxaxa/Spectra/pkg/logger"
)

type V1 struct {
	img    usecase.ImageUseCase
	logger logger.Interface
}
