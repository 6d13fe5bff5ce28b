package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"biglietto/internal/domain"
)

// errBackgroundNotFound is the internal "try the next source" signal.
var errBackgroundNotFound = errors.New("background not found")

// backgroundSource is one strategy in the ordered resolution chain. A source
// either finds and decodes a background or reports not-found so the chain can
// move on.
type backgroundSource interface {
	name() string
	resolve(ctx context.Context, ev *domain.Event) (image.Image, error)
}

// uploadSource reads the event's uploaded background from the configured
// uploads directory.
type uploadSource struct {
	dir string
}

func (s *uploadSource) name() string { return "upload" }

func (s *uploadSource) resolve(_ context.Context, ev *domain.Event) (image.Image, error) {
	if ev.BackgroundPath == nil || *ev.BackgroundPath == "" || filepath.IsAbs(*ev.BackgroundPath) {
		return nil, errBackgroundNotFound
	}
	img, err := imaging.Open(filepath.Join(s.dir, *ev.BackgroundPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errBackgroundNotFound
		}
		return nil, fmt.Errorf("decode uploaded background: %w", err)
	}
	return img, nil
}

// legacySource handles events whose background reference is an absolute path
// from the old installation layout.
type legacySource struct {
	dir string
}

func (s *legacySource) name() string { return "legacy" }

func (s *legacySource) resolve(_ context.Context, ev *domain.Event) (image.Image, error) {
	if ev.BackgroundPath == nil || *ev.BackgroundPath == "" {
		return nil, errBackgroundNotFound
	}
	path := *ev.BackgroundPath
	if !filepath.IsAbs(path) {
		if s.dir == "" {
			return nil, errBackgroundNotFound
		}
		path = filepath.Join(s.dir, path)
	}
	img, err := imaging.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errBackgroundNotFound
		}
		return nil, fmt.Errorf("decode legacy background: %w", err)
	}
	return img, nil
}

// remoteSource fetches the background from the event's object-store URL.
type remoteSource struct {
	client *http.Client
}

func (s *remoteSource) name() string { return "remote" }

func (s *remoteSource) resolve(ctx context.Context, ev *domain.Event) (image.Image, error) {
	if ev.BackgroundURL == nil || *ev.BackgroundURL == "" {
		return nil, errBackgroundNotFound
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *ev.BackgroundURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch background: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errBackgroundNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("background url returned status: %d", resp.StatusCode)
	}
	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode remote background: %w", err)
	}
	return img, nil
}

// syntheticSource generates a plain dark canvas. It sits last in the chain
// and never fails, so a missing background can never abort issuance.
type syntheticSource struct {
	width, height int
}

func (s *syntheticSource) name() string { return "synthetic" }

func (s *syntheticSource) resolve(_ context.Context, _ *domain.Event) (image.Image, error) {
	return imaging.New(s.width, s.height, color.NRGBA{R: 24, G: 26, B: 34, A: 255}), nil
}

// BackgroundResolver tries each source in order and returns the first hit.
type BackgroundResolver struct {
	sources []backgroundSource
	logger  *slog.Logger
}

// NewBackgroundResolver builds the standard chain: upload dir, legacy path,
// remote URL, synthetic fallback sized to the given canvas.
func NewBackgroundResolver(uploadDir, legacyDir string, client *http.Client, width, height int, logger *slog.Logger) *BackgroundResolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &BackgroundResolver{
		sources: []backgroundSource{
			&uploadSource{dir: uploadDir},
			&legacySource{dir: legacyDir},
			&remoteSource{client: client},
			&syntheticSource{width: width, height: height},
		},
		logger: logger,
	}
}

// Resolve walks the chain. Decode failures are logged and treated like
// not-found so a corrupt upload degrades to the next source instead of
// failing the pipeline.
func (r *BackgroundResolver) Resolve(ctx context.Context, ev *domain.Event) image.Image {
	for _, src := range r.sources {
		img, err := src.resolve(ctx, ev)
		if err != nil {
			if !errors.Is(err, errBackgroundNotFound) {
				r.logger.Warn("background source failed, trying next",
					"source", src.name(), "event_id", ev.ID, "err", err)
			}
			continue
		}
		return img
	}
	// Unreachable: the synthetic source always resolves.
	return imaging.New(1, 1, color.NRGBA{A: 255})
}
