// Package cli is an interactive shell around the upload pipeline. It is a
// development tool: real clients embed the services package directly.
package cli

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pairwave/mediaflow/internal/client/api"
	"github.com/pairwave/mediaflow/internal/client/config"
	"github.com/pairwave/mediaflow/internal/client/services"
	"github.com/pairwave/mediaflow/internal/logging"
)

type App struct {
	config  *config.Config
	uploads services.UploadService
	ownerID string
	reader  *bufio.Reader
	out     io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	reader := bufio.NewReader(os.Stdin)

	ownerID, err := GetSimpleText(reader, "Owner id", os.Stdout)
	if err != nil {
		return nil, err
	}

	token, err := GetToken(os.Stdout)
	if err != nil {
		return nil, err
	}

	log := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	apiClient := api.NewHTTPClient(c.BackendBaseURL, c.RequestTimeout, api.StaticToken(strings.TrimSpace(string(token))))

	return &App{
		config:  c,
		uploads: services.NewUploadService(apiClient, c, log),
		ownerID: ownerID,
		reader:  reader,
		out:     os.Stdout,
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.uploads.Close()

	if err := a.uploads.Hydrate(ctx, a.ownerID); err != nil {
		printlnFn("Warning: could not hydrate existing media:", err)
	}

	runREPL(ctx, a, bufio.NewScanner(os.Stdin))
}
