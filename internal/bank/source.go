package bank

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

const maxBankBytes = 16 << 20

var subjectIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Source yields a parsed bank per subject. Every failure is a *LoadError.
type Source interface {
	Load(ctx context.Context, subject string) (RawBank, error)
}

// Fetcher retrieves the undecoded bank document for a subject.
type Fetcher interface {
	Fetch(ctx context.Context, subject string) ([]byte, error)
}

// Key is the resource path of a subject's bank.
func Key(subject string) string { return "data/" + subject + ".json" }

type fetchSource struct{ f Fetcher }

// NewSource parses whatever f returns.
func NewSource(f Fetcher) Source { return fetchSource{f: f} }

func (s fetchSource) Load(ctx context.Context, subject string) (RawBank, error) {
	if !subjectIDPattern.MatchString(subject) {
		return RawBank{}, &LoadError{Subject: subject, Err: fmt.Errorf("invalid subject id %q", subject)}
	}
	data, err := s.f.Fetch(ctx, subject)
	if err != nil {
		return RawBank{}, &LoadError{Subject: subject, Err: err}
	}
	b, err := Parse(subject, data)
	if err != nil {
		return RawBank{}, &LoadError{Subject: subject, Err: err}
	}
	return b, nil
}

// BlobFetcher reads banks from a blob store, e.g. a local data directory.
type BlobFetcher struct {
	Store storage.BlobStore
}

func (f BlobFetcher) Fetch(ctx context.Context, subject string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := f.Store.Get(Key(subject))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxBankBytes))
}

// HTTPFetcher GETs <BaseURL>/data/<subject>.json.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, subject string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"/"+Key(subject), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBankBytes))
}

// CachedFetcher is the offline asset cache: a cache hit never touches the
// origin; a miss fetches from the origin and stores the document when it
// parses. Cache write failures are logged by Logf and otherwise ignored.
type CachedFetcher struct {
	Cache  storage.BlobStore
	Origin Fetcher
	Logf   func(format string, args ...any)
}

func (f CachedFetcher) Fetch(ctx context.Context, subject string) ([]byte, error) {
	if rc, err := f.Cache.Get(Key(subject)); err == nil {
		data, rerr := io.ReadAll(io.LimitReader(rc, maxBankBytes))
		rc.Close()
		if rerr == nil {
			return data, nil
		}
	}
	data, err := f.Origin.Fetch(ctx, subject)
	if err != nil {
		return nil, err
	}
	if _, perr := Parse(subject, data); perr == nil {
		if _, werr := f.Cache.Put(Key(subject), bytes.NewReader(data)); werr != nil && f.Logf != nil {
			f.Logf("bank cache: store %s: %v", subject, werr)
		}
	}
	return data, nil
}
