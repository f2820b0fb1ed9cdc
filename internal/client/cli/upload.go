package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/pairwave/mediaflow/internal/client/models"
)

// Upload prompts for a file path and a slot position, then runs the full
// pipeline. The command returns once the transfer is acknowledged; the
// processing watch continues in the background.
func (a *App) Upload(ctx context.Context) error {
	path, err := GetSimpleText(a.reader, "File to upload", a.out)
	if err != nil {
		return err
	}

	posText, err := GetSimpleText(a.reader, "Slot position", a.out)
	if err != nil {
		return err
	}
	position, err := strconv.Atoi(posText)
	if err != nil {
		printlnFn("Position must be a number:", posText)
		return err
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		printlnFn("Cannot read file:", err)
		return err
	}

	req := models.MediaUploadRequest{
		MimeType: http.DetectContentType(payload),
		Size:     int64(len(payload)),
		Position: position,
	}

	mediaID, err := a.uploads.Upload(ctx, a.ownerID, req, payload)
	if err != nil {
		printlnFn("Upload failed:", err)
		return err
	}

	printlnFn(fmt.Sprintf("Accepted, media id %s. Use 'status' to follow processing.", mediaID))
	return nil
}
