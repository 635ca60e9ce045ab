package fundgrube

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io/fs"
	"math"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Brownie44l1/fundgrube-api/internal/domain"
	"github.com/Brownie44l1/fundgrube-api/internal/items"
	"github.com/Brownie44l1/fundgrube-api/internal/labels"
	"github.com/Brownie44l1/fundgrube-api/internal/model"
	"github.com/Brownie44l1/fundgrube-api/internal/notify"
	"github.com/Brownie44l1/fundgrube-api/internal/objectstore"
)

type stubClassifier struct {
	probs []float32
}

func (s stubClassifier) Classify(context.Context, model.Tensor) ([]float32, error) {
	return s.probs, nil
}

type recordingPublisher struct {
	events []notify.MatchEvent
	err    error
}

func (p *recordingPublisher) PublishMatch(_ context.Context, ev notify.MatchEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

type fixture struct {
	svc       *Service
	store     *items.SQLiteStore
	publisher *recordingPublisher
	imageDir  string
}

func newFixture(t *testing.T, probs []float32) fixture {
	t.Helper()
	store, err := items.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	dir := t.TempDir()
	objects, err := objectstore.New(dir, "http://localhost:8080/images")
	if err != nil {
		t.Fatal(err)
	}

	pub := &recordingPublisher{}
	catalog := labels.New("0 Wallet", "1 Umbrella", "2 Key")
	svc := NewService(Deps{
		Predictor: model.NewPredictor(stubClassifier{probs: probs}, catalog),
		Store:     store,
		Objects:   objects,
		Publisher: pub,
	})
	return fixture{svc: svc, store: store, publisher: pub, imageDir: dir}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestAnalyzeResolvesLabel(t *testing.T) {
	f := newFixture(t, []float32{0.8, 0.15, 0.05})
	res, err := f.svc.Analyze(context.Background(), pngBytes(t, 320, 240))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Label != "Wallet" || res.Percent != 80 {
		t.Fatalf("got %+v", res)
	}
}

func TestAnalyzeRejectsUndecodableImage(t *testing.T) {
	f := newFixture(t, []float32{1, 0, 0})
	_, err := f.svc.Analyze(context.Background(), []byte("definitely not an image"))
	if !domain.IsKind(err, domain.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestAnalyzeTensorChecksSize(t *testing.T) {
	f := newFixture(t, []float32{1, 0, 0})
	if _, err := f.svc.AnalyzeTensor(context.Background(), make([]float32, 3)); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	res, err := f.svc.AnalyzeTensor(context.Background(), make([]float32, 224*224*3))
	if err != nil {
		t.Fatalf("AnalyzeTensor: %v", err)
	}
	if res.Label != "Wallet" {
		t.Fatalf("Label = %q", res.Label)
	}
}

func TestReportStoresAndMatches(t *testing.T) {
	f := newFixture(t, []float32{0.9, 0.05, 0.05})
	ctx := context.Background()

	first, err := f.svc.Report(ctx, Submission{
		Image:    pngBytes(t, 64, 64),
		Filename: "wallet.png",
		Type:     domain.ItemFound,
		Tags:     []string{" brown ", "", "leather"},
		Location: "Bibliothek",
	})
	if err != nil {
		t.Fatalf("Report found: %v", err)
	}
	if len(first.Matches) != 0 {
		t.Fatalf("first report should have no matches, got %d", len(first.Matches))
	}
	if len(f.publisher.events) != 0 {
		t.Fatalf("no notification expected without matches")
	}
	if first.Record.ID == "" || first.Record.CreatedAt.IsZero() {
		t.Fatalf("server fields not populated: %+v", first.Record)
	}
	if got := first.Record.Tags; len(got) != 2 || got[0] != "brown" || got[1] != "leather" {
		t.Fatalf("Tags = %v", got)
	}
	if first.Record.Confidence != float32(0.9) {
		t.Fatalf("raw confidence not stored: %v", first.Record.Confidence)
	}

	key := strings.TrimPrefix(first.Record.ImageURL, "http://localhost:8080/images/")
	if !strings.HasPrefix(key, "found/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("ImageURL = %q", first.Record.ImageURL)
	}
	if _, err := os.Stat(filepath.Join(f.imageDir, filepath.FromSlash(key))); err != nil {
		t.Fatalf("image not stored: %v", err)
	}

	second, err := f.svc.Report(ctx, Submission{
		Image:  pngBytes(t, 64, 64),
		Type:   domain.ItemSearch,
		Reward: 20,
	})
	if err != nil {
		t.Fatalf("Report search: %v", err)
	}
	if len(second.Matches) != 1 || second.Matches[0].ID != first.Record.ID {
		t.Fatalf("expected match with found wallet, got %+v", second.Matches)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].ItemID != second.Record.ID {
		t.Fatalf("expected one match event, got %+v", f.publisher.events)
	}
	if second.Record.Location != nil {
		t.Fatalf("blank location should be nil")
	}
}

func TestReportUsesConfirmedLabel(t *testing.T) {
	f := newFixture(t, []float32{0.9, 0.05, 0.05})
	rep, err := f.svc.Report(context.Background(), Submission{
		Image: pngBytes(t, 10, 10),
		Type:  domain.ItemSearch,
		Label: "Umbrella",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Record.Label != "Umbrella" || rep.Prediction.Label != "Wallet" {
		t.Fatalf("record %q prediction %q", rep.Record.Label, rep.Prediction.Label)
	}
}

func TestReportSurvivesNotificationFailure(t *testing.T) {
	f := newFixture(t, []float32{0.9, 0.05, 0.05})
	f.publisher.err = errors.New("broker down")
	ctx := context.Background()

	if _, err := f.svc.Report(ctx, Submission{Image: pngBytes(t, 8, 8), Type: domain.ItemFound}); err != nil {
		t.Fatal(err)
	}
	rep, err := f.svc.Report(ctx, Submission{Image: pngBytes(t, 8, 8), Type: domain.ItemSearch})
	if err != nil {
		t.Fatalf("publish failure must not fail the report: %v", err)
	}
	if len(rep.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(rep.Matches))
	}
}

func TestReportValidatesBeforeWork(t *testing.T) {
	f := newFixture(t, []float32{1, 0, 0})
	ctx := context.Background()

	if _, err := f.svc.Report(ctx, Submission{Image: pngBytes(t, 4, 4), Type: "lost"}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for type, got %v", err)
	}
	if _, err := f.svc.Report(ctx, Submission{Image: pngBytes(t, 4, 4), Type: domain.ItemFound, Reward: -5}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for reward, got %v", err)
	}

	all, err := f.svc.Items(ctx, domain.ItemFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("invalid submissions must not be stored, got %d", len(all))
	}
}

func TestReportRejectsNonFiniteReward(t *testing.T) {
	f := newFixture(t, []float32{1, 0, 0})
	ctx := context.Background()

	for _, reward := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := f.svc.Report(ctx, Submission{Image: pngBytes(t, 4, 4), Type: domain.ItemFound, Reward: reward})
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("reward %v: expected ErrInvalidInput, got %v", reward, err)
		}
	}
	if n := countFiles(t, f.imageDir); n != 0 {
		t.Fatalf("rejected submissions must not leave images, found %d", n)
	}
}

type failingInsertStore struct {
	*items.SQLiteStore
}

func (failingInsertStore) Insert(context.Context, *domain.ItemRecord) (string, error) {
	return "", domain.WrapError(domain.ErrStoreUnavailable, "insert item", errors.New("disk full"))
}

func TestReportRemovesImageWhenInsertFails(t *testing.T) {
	f := newFixture(t, []float32{1, 0, 0})
	objects, err := objectstore.New(f.imageDir, "/images")
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(Deps{
		Predictor: model.NewPredictor(stubClassifier{probs: []float32{1, 0, 0}}, labels.New("0 Wallet", "1 Umbrella", "2 Key")),
		Store:     failingInsertStore{f.store},
		Objects:   objects,
	})

	_, err = svc.Report(context.Background(), Submission{Image: pngBytes(t, 4, 4), Filename: "w.png", Type: domain.ItemFound})
	if !domain.IsKind(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if n := countFiles(t, f.imageDir); n != 0 {
		t.Fatalf("expected the saved image to be removed, found %d files", n)
	}
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestSplitTags(t *testing.T) {
	got := SplitTags("rot, klein,, ")
	if len(got) != 2 || got[0] != "rot" || got[1] != "klein" {
		t.Fatalf("SplitTags = %v", got)
	}
	if got := SplitTags(""); got == nil || len(got) != 0 {
		t.Fatalf("SplitTags(\"\") = %#v", got)
	}
}
