package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/postoffice/pkg/logger"
	"github.com/dmitrymomot/postoffice/pkg/mailer"
)

// DefaultMaxTransfer bounds how much is streamed for one file. A declared
// length above it fails as too large without reading the body.
const DefaultMaxTransfer int64 = 64 << 20

const sniffLen = 512

// Fetcher downloads and verifies attachments.
type Fetcher struct {
	transport   Transport
	spool       Spool
	log         *slog.Logger
	live        map[string]struct{} // keys owned by an attempt in this process
	ceiling     int64
	maxTransfer int64
	mu          sync.Mutex
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithCeiling overrides the per-file ceiling.
func WithCeiling(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.ceiling = n
		}
	}
}

// WithMaxTransfer overrides DefaultMaxTransfer.
func WithMaxTransfer(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxTransfer = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.log = l
		}
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(t Transport, s Spool, opts ...Option) *Fetcher {
	f := &Fetcher{
		transport:   t,
		spool:       s,
		log:         logger.NewNope(),
		live:        make(map[string]struct{}),
		ceiling:     Ceiling,
		maxTransfer: DefaultMaxTransfer,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch resolves every spec concurrently and returns them in request order.
// On the first failure the remaining downloads are cancelled and nothing
// stays in the spool.
func (f *Fetcher) Fetch(ctx context.Context, specs []Spec) ([]Resolved, error) {
	return f.FetchHeld(ctx, specs, time.Time{})
}

// FetchHeld is Fetch for attachments sent later. Sweep keeps the entries
// until at least until, even in other processes sharing the spool.
func (f *Fetcher) FetchHeld(ctx context.Context, specs []Spec, until time.Time) ([]Resolved, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	out := make([]Resolved, len(specs))
	done := make([]bool, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			r, err := f.fetchOne(gctx, spoolKey(i, until), spec)
			if err != nil {
				return err
			}
			out[i], done[i] = r, true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var fetched []Resolved
		for i, ok := range done {
			if ok {
				fetched = append(fetched, out[i])
			}
		}
		// The request context may be cancelled already.
		f.Release(context.WithoutCancel(ctx), fetched)
		return nil, err
	}

	f.mu.Lock()
	for _, r := range out {
		f.live[r.Key] = struct{}{}
	}
	f.mu.Unlock()

	return out, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, key string, spec Spec) (Resolved, error) {
	resp, err := f.transport.Get(ctx, spec.URL)
	if err != nil {
		return Resolved{}, fmt.Errorf("%w: %s: %v", ErrFetchFailed, spec.URL, err)
	}
	if resp == nil || resp.Body == nil {
		return Resolved{}, fmt.Errorf("%w: %s: no response", ErrFetchFailed, spec.URL)
	}
	defer resp.Body.Close()

	declared := resp.ContentLength
	if declared > f.maxTransfer {
		return Resolved{}, fmt.Errorf("%w: %s: declared %d bytes", ErrTooLarge, spec.Name, declared)
	}

	// One byte past the declared length is enough to detect an overrun.
	limit := f.maxTransfer + 1
	if declared >= 0 {
		limit = declared + 1
	}

	body := &countingReader{r: io.LimitReader(resp.Body, limit)}

	putErr := f.spool.Put(ctx, key, body)
	// A body cut short is a size mismatch, not a transport failure.
	truncated := errors.Is(body.err, io.ErrUnexpectedEOF)
	if !truncated && (body.err != nil || putErr != nil) {
		cause := putErr
		if body.err != nil {
			cause = body.err
		}
		f.discard(ctx, key)
		return Resolved{}, fmt.Errorf("%w: %s: %v", ErrFetchFailed, spec.URL, cause)
	}

	if declared < 0 || body.n != declared {
		f.discard(ctx, key)
		return Resolved{}, fmt.Errorf("%w: %s: received %d bytes, declared %d",
			ErrSizeMismatch, spec.Name, body.n, declared)
	}
	if declared >= f.ceiling {
		f.discard(ctx, key)
		return Resolved{}, fmt.Errorf("%w: %s: %d bytes, limit %d", ErrTooLarge, spec.Name, declared, f.ceiling)
	}

	return Resolved{
		Name:        spec.Name,
		Key:         key,
		Size:        declared,
		ContentType: contentType(resp.ContentType, spec.Name, body.head),
	}, nil
}

func (f *Fetcher) discard(ctx context.Context, key string) {
	f.mu.Lock()
	delete(f.live, key)
	f.mu.Unlock()

	if err := f.spool.Remove(context.WithoutCancel(ctx), key); err != nil {
		f.log.WarnContext(ctx, "failed to remove spooled attachment",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

// Release removes spool entries. Failures are logged and otherwise ignored.
func (f *Fetcher) Release(ctx context.Context, list []Resolved) {
	for _, r := range list {
		f.discard(ctx, r.Key)
	}
}

// Load reads spooled attachments into memory for a transport.
func (f *Fetcher) Load(ctx context.Context, list []Resolved) ([]mailer.Attachment, error) {
	out := make([]mailer.Attachment, 0, len(list))
	for _, r := range list {
		rc, err := f.spool.Open(ctx, r.Key)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(io.LimitReader(rc, r.Size+1))
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("attachment: read %s: %w", r.Key, err)
		}
		out = append(out, mailer.Attachment{
			Filename:    r.Name,
			ContentType: r.ContentType,
			Content:     data,
		})
	}
	return out, nil
}

// Sweep removes spool entries older than age, left behind by crashed workers.
// Entries owned by an attempt in this process are kept, and so are entries
// whose hold ends less than age ago.
func (f *Fetcher) Sweep(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	return f.spool.Sweep(ctx, cutoff, func(key string) bool {
		f.mu.Lock()
		_, live := f.live[key]
		f.mu.Unlock()
		return live || heldUntil(key).After(cutoff)
	})
}

// spoolKey names a spool entry: file-<index>-<hold unix seconds>-<uuid>.
func spoolKey(index int, until time.Time) string {
	var hold int64
	if !until.IsZero() {
		hold = until.Unix()
	}
	return fmt.Sprintf("file-%d-%d-%s", index, hold, uuid.NewString())
}

// heldUntil reads the hold encoded by spoolKey. Other keys are not held.
func heldUntil(key string) time.Time {
	parts := strings.SplitN(key, "-", 4)
	if len(parts) != 4 || parts[0] != "file" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// contentType prefers a specific response header, then the file extension,
// then sniffing the first bytes.
func contentType(header, name string, head []byte) string {
	if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "application/octet-stream" {
		return header
	}
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return http.DetectContentType(head)
}

// countingReader counts bytes, keeps the first sniffLen of them and
// remembers the read error the spool may swallow.
type countingReader struct {
	r    io.Reader
	err  error
	head []byte
	n    int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if room := sniffLen - len(c.head); room > 0 && n > 0 {
		c.head = append(c.head, p[:min(n, room)]...)
	}
	c.n += int64(n)
	if err != nil && err != io.EOF {
		c.err = err
	}
	return n, err
}
