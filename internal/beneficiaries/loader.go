package beneficiaries

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/affiliate-link-bot/internal/core/attribution"
	"github.com/lueurxax/affiliate-link-bot/internal/core/errors"
	"github.com/lueurxax/affiliate-link-bot/internal/platform/observability"
)

const (
	defaultFetchTimeout = 10 * time.Second
	maxRemoteBodyBytes  = 1 << 20

	logKeyCreator = "creator"
)

// LoaderConfig locates the documents.
type LoaderConfig struct {
	// DocumentPath is the operator's document. Required.
	DocumentPath string
	// CreatorsPath is an optional creators file; a missing file is not an error.
	CreatorsPath string
	// FetchTimeout bounds each remote creator request.
	FetchTimeout time.Duration
}

// Loader reads the documents and builds snapshots.
type Loader struct {
	cfg    LoaderConfig
	client *http.Client
	logger *zerolog.Logger
	now    func() time.Time
}

func NewLoader(cfg LoaderConfig, logger *zerolog.Logger) *Loader {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}

	return &Loader{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.FetchTimeout},
		logger: logger,
		now:    time.Now,
	}
}

// Load reads every document and returns a fresh snapshot. A malformed local document or creators
// file is an error; an unreachable or malformed remote creator is logged and left out.
func (l *Loader) Load(ctx context.Context) (*attribution.Snapshot, error) {
	data, err := os.ReadFile(l.cfg.DocumentPath)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", l.cfg.DocumentPath, err)
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", l.cfg.DocumentPath, err)
	}

	entries, err := l.creatorEntries(doc)
	if err != nil {
		return nil, err
	}

	creators := make([]*attribution.Beneficiary, 0, len(entries))

	for _, entry := range entries {
		b, err := l.resolveCreator(ctx, entry)
		if err != nil {
			observability.CreatorFetchFailures.Inc()
			l.logger.Warn().Err(err).Str(logKeyCreator, entry.ID).Msg("skipping creator")

			continue
		}

		creators = append(creators, b)
	}

	snap := BuildSnapshot(doc, creators, l.now())

	if err := snap.WeightTable().Validate(); err != nil {
		return nil, err
	}

	return snap, nil
}

// BuildSnapshot assembles the snapshot from a parsed document and already-resolved creators.
func BuildSnapshot(doc *Document, creators []*attribution.Beneficiary, loadedAt time.Time) *attribution.Snapshot {
	var primary *attribution.Beneficiary
	if doc.Primary != nil {
		primary = doc.Primary.Beneficiary(attribution.PrimaryID, 0)
	}

	return attribution.NewSnapshot(primary, creators, doc.Settings(), doc.ResolvedMessages(), loadedAt)
}

// creatorEntries merges the document's creators with the optional creators file.
// The document wins on duplicate ids.
func (l *Loader) creatorEntries(doc *Document) ([]CreatorEntry, error) {
	entries := append([]CreatorEntry(nil), doc.Creators...)

	if l.cfg.CreatorsPath == "" {
		return entries, nil
	}

	data, err := os.ReadFile(l.cfg.CreatorsPath)
	if errors.Is(err, os.ErrNotExist) {
		l.logger.Debug().Str("path", l.cfg.CreatorsPath).Msg("creators file not found")

		return entries, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read creators %s: %w", l.cfg.CreatorsPath, err)
	}

	extra, err := ParseCreators(data)
	if err != nil {
		return nil, fmt.Errorf("parse creators %s: %w", l.cfg.CreatorsPath, err)
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[strings.TrimSpace(e.ID)] = true
	}

	for _, e := range extra {
		if seen[strings.TrimSpace(e.ID)] {
			l.logger.Warn().Str(logKeyCreator, e.ID).Msg("creator defined twice, keeping document entry")

			continue
		}

		entries = append(entries, e)
	}

	return entries, nil
}

func (l *Loader) resolveCreator(ctx context.Context, entry CreatorEntry) (*attribution.Beneficiary, error) {
	id := strings.TrimSpace(entry.ID)

	if entry.Configuration != nil {
		return entry.Configuration.Beneficiary(id, entry.Percentage), nil
	}

	if entry.URL == "" {
		return nil, fmt.Errorf("%w: %s has neither url nor configuration", errors.ErrCreatorUnavailable, id)
	}

	creds, err := l.fetchRemote(ctx, entry.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrCreatorUnavailable, id, err)
	}

	l.logger.Debug().Str(logKeyCreator, id).Str("url", entry.URL).Msg("loaded remote creator")

	return creds.Beneficiary(id, entry.Percentage), nil
}

func (l *Loader) fetchRemote(ctx context.Context, rawURL string) (*Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %d", errors.ErrHTTPStatusNotOK, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return ParseRemote(body)
}
