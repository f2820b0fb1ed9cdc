package cli

import (
	"context"
	"fmt"

	"github.com/pairwave/mediaflow/internal/client/models"
)

// List prints every record the session knows about, active first.
func (a *App) List(ctx context.Context) error {
	records := a.uploads.Active()
	for _, stage := range []models.Stage{models.StageCompleted, models.StageFailed, models.StageTimedOut} {
		records = append(records, a.uploads.ByStage(stage)...)
	}

	if len(records) == 0 {
		printlnFn("No media.")
		return nil
	}

	for _, rec := range records {
		printlnFn(fmt.Sprintf("%s  pos=%d  %s  %d bytes  %s",
			rec.MediaID, rec.Request.Position, rec.Request.MimeType, rec.Request.Size, rec.Stage))
	}
	return nil
}
