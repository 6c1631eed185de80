package postoffice_test

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/postoffice"
	"github.com/dmitrymomot/postoffice/pkg/address"
	"github.com/dmitrymomot/postoffice/pkg/attachment"
	"github.com/dmitrymomot/postoffice/pkg/cache"
	"github.com/dmitrymomot/postoffice/pkg/mailer"
	"github.com/dmitrymomot/postoffice/pkg/spam"
)

func newBuilder(t *testing.T) (*postoffice.Builder, *spam.Service, *fileServer, *attachment.FileSpool) {
	t.Helper()

	bl := spam.New(cache.NewMemory[bool]())
	files := newFileServer(t)
	spool, err := attachment.NewFileSpool(t.TempDir())
	require.NoError(t, err)

	b := postoffice.NewBuilder(
		address.NewValidator(bl),
		mailer.NewResolver(mailer.NewMemoryStore(mailer.Template{Name: "t", Body: "<p>{{.who}}</p>"})),
		attachment.NewFetcher(attachment.NewHTTPTransport(files.Client()), spool),
	)
	return b, bl, files, spool
}

func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	b, _, files, _ := newBuilder(t)
	msg, err := b.
		To(context.Background(), "x@Example.org").
		From("a@b.com").
		Title("Report").
		Template(context.Background(), "t").
		FromName("Ops").
		Parameters(map[string]any{"who": "you"}).
		Attachments([]attachment.Spec{files.spec(12, "r.csv")}).
		SendAfter(30).
		Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "x@example.org", msg.To())
	assert.Equal(t, "a@b.com", msg.From())
	assert.Equal(t, "Ops", msg.FromName())
	assert.Equal(t, "Report (1 attachment, total 12 bytes)", msg.Subject())
	assert.Equal(t, "<p>you</p>", msg.HTML())
	assert.Equal(t, "you", msg.Text())
	assert.Equal(t, "t", msg.Template())
	assert.Equal(t, 30*time.Second, msg.Delay())
	assert.False(t, msg.Immediate())
	require.Len(t, msg.Attachments(), 1)
	assert.Equal(t, int64(12), msg.Attachments()[0].Size)
}

func TestBuilder_FieldNotConfigured(t *testing.T) {
	t.Parallel()

	b, _, _, _ := newBuilder(t)
	_, err := b.
		To(context.Background(), "x@example.org").
		From("a@b.com").
		Title("Hi").
		Template(context.Background(), "t").
		Parameters(map[string]any{"who": "you"}).
		SendNow().
		Build(context.Background())

	var e *postoffice.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, postoffice.FieldFromName, e.Field)
	assert.Equal(t, postoffice.ReasonFieldNotConfigured, e.Reason)
	assert.True(t, e.IsContractViolation())
	assert.ErrorIs(t, err, postoffice.ErrFieldNotConfigured)
}

func TestBuilder_FirstFailureInFieldOrder(t *testing.T) {
	t.Parallel()

	b, bl, _, _ := newBuilder(t)
	require.NoError(t, bl.BlockDomain(context.Background(), "blocked.org"))

	// Setters called in reverse order; every field is invalid.
	_, err := b.
		SendAfter(-1).
		Attachments(nil).
		FromName(" ").
		Template(context.Background(), "").
		Title("").
		From("bad").
		To(context.Background(), "bad@blocked.org").
		Build(context.Background())

	var e *postoffice.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, postoffice.FieldTo, e.Field)
	assert.Equal(t, postoffice.ReasonBlockedDomain, e.Reason)
	assert.False(t, e.IsContractViolation())
}

func TestBuilder_SendAfter(t *testing.T) {
	t.Parallel()

	maxSeconds := int64(math.MaxInt64 / int64(time.Second))

	tests := []struct {
		name    string
		seconds int64
		want    time.Duration
		wantErr bool
	}{
		{name: "one second", seconds: 1, want: time.Second},
		{name: "longest representable", seconds: maxSeconds, want: time.Duration(maxSeconds) * time.Second},
		{name: "zero", seconds: 0, wantErr: true},
		{name: "negative", seconds: -5, wantErr: true},
		{name: "wraps negative", seconds: maxSeconds + 1, wantErr: true},
		{name: "wraps positive", seconds: 18446744074, wantErr: true},
		{name: "max int64", seconds: math.MaxInt64, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, _, _, _ := newBuilder(t)
			msg, err := b.
				To(context.Background(), "x@example.org").
				From("a@b.com").
				Title("Hi").
				Template(context.Background(), "t").
				FromName("Ops").
				Parameters(map[string]any{"who": "you"}).
				Attachments(nil).
				SendAfter(tt.seconds).
				Build(context.Background())

			if tt.wantErr {
				require.ErrorIs(t, err, postoffice.ErrInvalidDelay)
				assert.Equal(t, postoffice.ReasonInvalidDelay, postoffice.ReasonOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.Delay())
			assert.Positive(t, msg.Delay())
		})
	}
}

func TestBuilder_InvalidDelayReleasesAttachments(t *testing.T) {
	t.Parallel()

	b, _, files, spool := newBuilder(t)
	_, err := b.
		To(context.Background(), "x@example.org").
		From("a@b.com").
		Title("Hi").
		Template(context.Background(), "t").
		FromName("Ops").
		Parameters(map[string]any{"who": "you"}).
		Attachments([]attachment.Spec{files.spec(5, "a.txt")}).
		SendAfter(0).
		Build(context.Background())

	require.ErrorIs(t, err, postoffice.ErrInvalidDelay)
	assert.Equal(t, postoffice.ReasonInvalidDelay, postoffice.ReasonOf(err))
	assert.Equal(t, int32(1), files.hits.Load())

	n, err := spool.Sweep(context.Background(), time.Now().Add(time.Hour), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMessage_JSON(t *testing.T) {
	t.Parallel()

	b, _, files, _ := newBuilder(t)
	msg, err := b.
		To(context.Background(), "x@example.org").
		From("a@b.com").
		Title("Hi").
		Template(context.Background(), "t").
		FromName("Zoë").
		Parameters(map[string]any{"who": "you"}).
		Attachments([]attachment.Spec{files.spec(3, "a.txt")}).
		SendAfter(10).
		Build(context.Background())
	require.NoError(t, err)

	data, err := json.Marshal(postoffice.Delivery{Message: msg})
	require.NoError(t, err)

	var got postoffice.Delivery
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, msg, got.Message)
	assert.Equal(t, "Zoë", got.Message.FromName())
	assert.Equal(t, "=?utf-8?q?Zo=C3=AB?= <a@b.com>", got.Message.Email(nil).From)
}
