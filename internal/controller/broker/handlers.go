package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/andreyxaxa/Spectra/internal/entity"
	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/andreyxaxa/Spectra/internal/usecase"
	"github.com/andreyxaxa/Spectra/pkg/types/errs"
)

func ReceivedHandler(uc usecase.ThumbnailUseCase) Handler {
	return func(ctx context.Context, d infrastructure.Delivery) error {
		var event entity.ReceivedEvent
		if err := decode(d, &event); err != nil {
			return err
		}

		return uc.OnReceived(ctx, event)
	}
}

func ProcessedHandler(uc usecase.ReconcileUseCase) Handler {
	return func(ctx context.Context, d infrastructure.Delivery) error {
		var event entity.ProcessedEvent
		if err := decode(d, &event); err != nil {
			return err
		}

		return uc.OnProcessed(ctx, event)
	}
}

// decode accepts bodies without a schema header as the current version.
func decode(d infrastructure.Delivery, v any) error {
	if version := d.Header(infrastructure.HeaderSchemaVersion); version != "" && version != entity.EventSchemaVersion {
		return errs.Permanent(fmt.Errorf("decode - schema version %q: %w", version, errs.ErrMalformedEvent))
	}

	err := json.Unmarshal(d.Body(), v)
	if err != nil {
		return errs.Permanent(fmt.Errorf("decode - json.Unmarshal: %w: %w", errs.ErrMalformedEvent, err))
	}

	return nil
}
