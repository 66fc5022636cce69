package gen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AvatarElite/ai"
	"AvatarElite/holder"
	"AvatarElite/ledger"
	"AvatarElite/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBackend records what it was called with and logs the call into the
// shared event trace so ordering against notifications can be checked.
type fakeBackend struct {
	trace *[]string

	calls  int
	prompt string
	ratio  string
	images [][]byte

	result *ai.Result
	err    error
}

func (f *fakeBackend) GenerateFromText(ctx context.Context, prompt, aspectRatio string) (*ai.Result, error) {
	f.calls++
	f.prompt = prompt
	f.ratio = aspectRatio
	*f.trace = append(*f.trace, "backend")
	return f.result, f.err
}

func (f *fakeBackend) GenerateFromImages(ctx context.Context, images [][]byte, prompt, aspectRatio string) (*ai.Result, error) {
	f.calls++
	f.prompt = prompt
	f.ratio = aspectRatio
	f.images = images
	*f.trace = append(*f.trace, "backend")
	return f.result, f.err
}

type fakeNotifier struct {
	trace *[]string
}

func (f *fakeNotifier) Notify(userId int64, text string) {
	*f.trace = append(*f.trace, "notify: "+text)
}

func (f *fakeNotifier) LowBalance(userId int64, remaining int) {
	*f.trace = append(*f.trace, fmt.Sprintf("low balance: %d", remaining))
}

// fakeFetcher serves avatar bytes by file id, failing on ids it does not
// know.
type fakeFetcher struct {
	files map[string][]byte
}

func (f *fakeFetcher) Fetch(ctx context.Context, fileId string) ([]byte, error) {
	data, ok := f.files[fileId]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

type fixture struct {
	orch    *Orchestrator
	store   *storage.MemoryStorage
	backend *fakeBackend
	trace   []string
}

func newFixture(t *testing.T, credits int, refund bool) *fixture {
	t.Helper()

	f := &fixture{store: storage.NewMemoryStorage()}
	_, err := f.store.GetOrCreate(1)
	require.NoError(t, err)
	require.NoError(t, f.store.SetCredits(1, credits))

	f.backend = &fakeBackend{
		trace:  &f.trace,
		result: &ai.Result{ImageBytes: []byte("png")},
	}
	fetcher := &fakeFetcher{files: map[string][]byte{
		"avatar-1": []byte("a1"),
		"avatar-2": []byte("a2"),
	}}

	led := ledger.New(f.store, testLogger())
	f.orch = NewOrchestrator(f.backend, led, fetcher, &fakeNotifier{trace: &f.trace}, testLogger(), refund)
	return f
}

func (f *fixture) credits(t *testing.T) int {
	t.Helper()
	credits, err := f.store.GetCredits(1)
	require.NoError(t, err)
	return credits
}

func TestGenerate_InsufficientCreditsSkipsBackend(t *testing.T) {
	f := newFixture(t, 3, false)

	_, err := f.orch.Generate(context.Background(), &Request{
		UserId:  1,
		Prompt:  "a cat",
		Quality: holder.Quality1K,
	})

	var insufficient *ledger.InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Need)
	assert.Equal(t, 3, insufficient.Have)
	assert.Zero(t, f.backend.calls, "backend must not be called when the charge fails")
	assert.Equal(t, 3, f.credits(t))
}

func TestGenerate_TextPromptDeliversPhoto(t *testing.T) {
	f := newFixture(t, 20, false)

	delivery, err := f.orch.Generate(context.Background(), &Request{
		UserId:      1,
		Prompt:      "a cat",
		Quality:     holder.Quality1K,
		AspectRatio: holder.RatioAuto,
	})
	require.NoError(t, err)

	assert.Equal(t, DeliverPhoto, delivery.Kind)
	assert.Equal(t, []byte("png"), delivery.ImageBytes)
	assert.Equal(t, "a cat", f.backend.prompt)
	assert.Equal(t, "1:1", f.backend.ratio)
	assert.Equal(t, 15, f.credits(t))
}

func TestGenerate_SessionAndAvatarReferencesInOrder(t *testing.T) {
	f := newFixture(t, 20, false)

	acc := &storage.Account{
		UserId:        1,
		AvatarEnabled: true,
		AvatarImages:  []string{"avatar-1", "avatar-2"},
	}
	sessionImg := holder.ReferenceImage{Bytes: []byte("session"), Width: 1920, Height: 1080}

	delivery, err := f.orch.Generate(context.Background(), &Request{
		UserId:      1,
		Prompt:      "a cat",
		Quality:     holder.Quality1K,
		AspectRatio: holder.RatioAuto,
		SessionRefs: []holder.ReferenceImage{sessionImg},
		Account:     acc,
	})
	require.NoError(t, err)

	assert.Equal(t, DeliverPhoto, delivery.Kind)
	require.Len(t, f.backend.images, 3)
	assert.Equal(t, []byte("session"), f.backend.images[0], "session references come first")
	assert.Equal(t, []byte("a1"), f.backend.images[1])
	assert.Equal(t, []byte("a2"), f.backend.images[2])

	assert.Equal(t, "1920:1080", f.backend.ratio, "auto ratio follows the session image, not avatars")
	assert.True(t, strings.HasPrefix(f.backend.prompt, "a cat"))
	assert.Contains(t, f.backend.prompt, "maintain high fidelity")
	assert.Equal(t, 15, f.credits(t))
}

func TestGenerate_AvatarFetchFailuresAreSkipped(t *testing.T) {
	f := newFixture(t, 20, false)

	acc := &storage.Account{
		UserId:        1,
		AvatarEnabled: true,
		AvatarImages:  []string{"avatar-1", "missing", "avatar-2"},
	}

	_, err := f.orch.Generate(context.Background(), &Request{
		UserId:      1,
		Prompt:      "a cat",
		Quality:     holder.Quality1K,
		AspectRatio: holder.RatioAuto,
		Account:     acc,
	})
	require.NoError(t, err)

	require.Len(t, f.backend.images, 2)
	assert.Equal(t, []byte("a1"), f.backend.images[0])
	assert.Equal(t, []byte("a2"), f.backend.images[1])
}

func TestGenerate_DisabledAvatarStaysOut(t *testing.T) {
	f := newFixture(t, 20, false)

	acc := &storage.Account{
		UserId:        1,
		AvatarEnabled: false,
		AvatarImages:  []string{"avatar-1"},
	}

	_, err := f.orch.Generate(context.Background(), &Request{
		UserId:      1,
		Prompt:      "a cat",
		Quality:     holder.Quality1K,
		AspectRatio: holder.RatioAuto,
		Account:     acc,
	})
	require.NoError(t, err)

	assert.Empty(t, f.backend.images)
	assert.Equal(t, "a cat", f.backend.prompt, "no fidelity suffix without references")
}

func TestGenerate_HighQualityDeliversDocument(t *testing.T) {
	for _, quality := range []string{holder.Quality2K, holder.Quality4K} {
		t.Run(quality, func(t *testing.T) {
			f := newFixture(t, 20, false)

			delivery, err := f.orch.Generate(context.Background(), &Request{
				UserId:      1,
				Prompt:      "a cat",
				Quality:     quality,
				AspectRatio: holder.RatioAuto,
			})
			require.NoError(t, err)

			assert.Equal(t, DeliverDocument, delivery.Kind)
			assert.Equal(t, 20-CostForQuality(quality), f.credits(t))
		})
	}
}

func TestGenerate_BackendFailureKeepsCharge(t *testing.T) {
	f := newFixture(t, 20, false)
	f.backend.result = nil
	f.backend.err = errors.New("model overloaded")

	delivery, err := f.orch.Generate(context.Background(), &Request{
		UserId:      1,
		Prompt:      "a cat",
		Quality:     holder.Quality1K,
		AspectRatio: holder.RatioAuto,
	})
	require.NoError(t, err, "a backend failure is a delivery, not an error")

	assert.Equal(t, DeliverText, delivery.Kind)
	assert.Equal(t, "❌ Error: model overloaded", delivery.Text)
	assert.Equal(t, 15, f.credits(t), "no refund by default")
}

func TestGenerate_BackendFailureRefundsWhenConfigured(t *testing.T) {
	f := newFixture(t, 20, true)
	f.backend.result = nil
	f.backend.err = errors.New("model overloaded")

	delivery, err := f.orch.Generate(context.Background(), &Request{
		UserId:      1,
		Prompt:      "a cat",
		Quality:     holder.Quality1K,
		AspectRatio: holder.RatioAuto,
	})
	require.NoError(t, err)

	assert.Equal(t, DeliverText, delivery.Kind)
	assert.Equal(t, 20, f.credits(t))
}

func TestGenerate_LowBalanceWarnedBeforeBackendCall(t *testing.T) {
	f := newFixture(t, 8, false)

	_, err := f.orch.Generate(context.Background(), &Request{
		UserId:      1,
		Prompt:      "a cat",
		Quality:     holder.Quality1K,
		AspectRatio: holder.RatioAuto,
	})
	require.NoError(t, err)

	warnAt := indexOf(f.trace, "low balance: 3")
	backendAt := indexOf(f.trace, "backend")
	require.GreaterOrEqual(t, warnAt, 0, "low balance warning missing from %v", f.trace)
	require.GreaterOrEqual(t, backendAt, 0)
	assert.Less(t, warnAt, backendAt, "warning must go out before the backend call")
}

func TestGenerate_NoLowBalanceWarningAboveThreshold(t *testing.T) {
	f := newFixture(t, 20, false)

	_, err := f.orch.Generate(context.Background(), &Request{
		UserId:      1,
		Prompt:      "a cat",
		Quality:     holder.Quality1K,
		AspectRatio: holder.RatioAuto,
	})
	require.NoError(t, err)

	for _, event := range f.trace {
		assert.NotContains(t, event, "low balance")
	}
}

func TestGenerate_ProgressTextOverridesDefaultNotice(t *testing.T) {
	f := newFixture(t, 20, false)

	_, err := f.orch.Generate(context.Background(), &Request{
		UserId:       1,
		Prompt:       "a cat",
		Quality:      holder.Quality1K,
		AspectRatio:  holder.RatioAuto,
		ProgressText: "working on it",
	})
	require.NoError(t, err)

	assert.Contains(t, f.trace, "notify: working on it")
	for _, event := range f.trace {
		assert.NotContains(t, event, "Generating your image")
	}
}

// countingStore tracks balance writes so charge-once behavior is
// observable.
type countingStore struct {
	*storage.MemoryStorage
	creditWrites int
}

func (c *countingStore) SetCredits(userId int64, credits int) error {
	c.creditWrites++
	return c.MemoryStorage.SetCredits(userId, credits)
}

func TestGenerate_RepeatedDeliveryDoesNotRecharge(t *testing.T) {
	store := &countingStore{MemoryStorage: storage.NewMemoryStorage()}
	_, err := store.GetOrCreate(1)
	require.NoError(t, err)
	require.NoError(t, store.SetCredits(1, 20))
	store.creditWrites = 0

	var trace []string
	backend := &fakeBackend{trace: &trace, result: &ai.Result{ImageBytes: []byte("png")}}
	led := ledger.New(store, testLogger())
	orch := NewOrchestrator(backend, led, &fakeFetcher{}, &fakeNotifier{trace: &trace}, testLogger(), false)

	delivery, err := orch.Generate(context.Background(), &Request{
		UserId:      1,
		Prompt:      "a cat",
		Quality:     holder.Quality1K,
		AspectRatio: holder.RatioAuto,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.creditWrites, "one generation, one balance write")

	// The delivery is inert data with no ledger handle; sending it any
	// number of times cannot spend anything.
	for i := 0; i < 2; i++ {
		assert.Equal(t, DeliverPhoto, delivery.Kind)
		assert.Equal(t, []byte("png"), delivery.ImageBytes)
	}

	assert.Equal(t, 1, store.creditWrites)
	credits, err := store.GetCredits(1)
	require.NoError(t, err)
	assert.Equal(t, 15, credits)
}

func indexOf(events []string, want string) int {
	for i, e := range events {
		if e == want {
			return i
		}
	}
	return -1
}
