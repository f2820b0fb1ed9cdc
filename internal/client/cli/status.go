package cli

import (
	"context"
	"fmt"
)

// Status prompts for a media id and prints the current record snapshot.
func (a *App) Status(ctx context.Context) error {
	mediaID, err := GetSimpleText(a.reader, "Media id", a.out)
	if err != nil {
		return err
	}

	rec, err := a.uploads.Status(mediaID)
	if err != nil {
		printlnFn("Status failed:", err)
		return err
	}

	line := fmt.Sprintf("%s: %s", rec.MediaID, rec.Stage)
	if rec.FailureReason != "" {
		line += " (" + rec.FailureReason + ")"
	}
	printlnFn(line)
	return nil
}
