package cli

import "context"

// Delete prompts for a media id and cancels it from whatever stage it is in.
func (a *App) Delete(ctx context.Context) error {
	mediaID, err := GetSimpleText(a.reader, "Media id", a.out)
	if err != nil {
		return err
	}

	if err := a.uploads.Delete(ctx, mediaID); err != nil {
		printlnFn("Delete failed:", err)
		return err
	}

	printlnFn("Deleted", mediaID)
	return nil
}
