package services

import (
	"context"

	"github.com/Belphemur/bazarr-translate/internal/models"
)

// TranslationDriver resolves a selection into (series, episode) pairs and asks Bazarr to translate each of them
type TranslationDriver interface {
	// Run translates every selected episode into the selection's target language.
	// The returned summary is never nil, even when an error is returned.
	Run(ctx context.Context, sel models.Selection) (*models.RunSummary, error)
}
