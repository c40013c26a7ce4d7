package workflow_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"textboxer/internal/detect"
	"textboxer/internal/storage"
	"textboxer/internal/workflow"
)

// fakeStore is an in-memory ObjectStore double.
type fakeStore struct {
	names        []string
	objects      map[string][]byte
	contentTypes map[string]string
	public       map[string]bool
	uploaded     []string
	deleted      []string
	downloadErr  map[string]error
	uploadErr    error
}

func newFakeStore(objects map[string][]byte, names ...string) *fakeStore {
	return &fakeStore{
		names:        names,
		objects:      objects,
		contentTypes: make(map[string]string),
		public:       make(map[string]bool),
		downloadErr:  make(map[string]error),
	}
}

func (s *fakeStore) List(ctx context.Context) ([]string, error) {
	return append([]string(nil), s.names...), nil
}

func (s *fakeStore) Download(ctx context.Context, name string) ([]byte, error) {
	if err := s.downloadErr[name]; err != nil {
		return nil, err
	}
	data, ok := s.objects[name]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (s *fakeStore) Upload(ctx context.Context, name string, data []byte, contentType string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.objects[name] = data
	s.contentTypes[name] = contentType
	s.names = append(s.names, name)
	s.uploaded = append(s.uploaded, name)
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, name string) error {
	delete(s.objects, name)
	remaining := s.names[:0]
	for _, n := range s.names {
		if n != name {
			remaining = append(remaining, n)
		}
	}
	s.names = remaining
	s.deleted = append(s.deleted, name)
	return nil
}

func (s *fakeStore) SetPublic(ctx context.Context, name string) error {
	s.public[name] = true
	return nil
}

func (s *fakeStore) PublicURL(name string) string {
	return "https://storage.example.test/bucket/" + name
}

// fakeDetector records every call and answers from a fixed sequence. The last
// result repeats once the sequence is exhausted.
type fakeDetector struct {
	results []*detect.Detection
	err     error
	calls   [][]byte
}

func (d *fakeDetector) Detect(ctx context.Context, img []byte) (*detect.Detection, error) {
	d.calls = append(d.calls, img)
	if d.err != nil {
		return nil, d.err
	}
	if len(d.results) == 0 {
		return &detect.Detection{}, nil
	}
	res := d.results[0]
	if len(d.results) > 1 {
		d.results = d.results[1:]
	}
	return res, nil
}

func whitePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func box(x0, y0, x1, y1 int) []detect.Vertex {
	return []detect.Vertex{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

// detection returns an aggregate annotation at (5,5)-(15,15) plus one fragment
// per given outline.
func detection(text string, boxes ...[]detect.Vertex) *detect.Detection {
	det := &detect.Detection{
		Text:      text,
		Fragments: []detect.Fragment{{Description: text, Vertices: box(5, 5, 15, 15)}},
	}
	for _, b := range boxes {
		det.Fragments = append(det.Fragments, detect.Fragment{Description: "w", Vertices: b})
	}
	return det
}

func isReddish(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r > g+0x2000 && r > b+0x2000
}

func anyReddish(img image.Image, rect image.Rectangle) bool {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if isReddish(img.At(x, y)) {
				return true
			}
		}
	}
	return false
}

func TestRunAnnotatesNewInput(t *testing.T) {
	original := whitePNG(t, 64, 48)
	store := newFakeStore(map[string][]byte{"a.png": original}, "a.png")
	detector := &fakeDetector{results: []*detect.Detection{detection("hello", box(30, 30, 40, 40))}}

	urls, err := workflow.New(store, detector).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"https://storage.example.test/bucket/a__boxed.png"}
	if len(urls) != 1 || urls[0] != want[0] {
		t.Fatalf("Run() urls = %v, want %v", urls, want)
	}

	data, ok := store.objects["a__boxed.png"]
	if !ok {
		t.Fatal("annotated output was not uploaded")
	}
	if ct := store.contentTypes["a__boxed.png"]; ct != "image/png" {
		t.Errorf("output content type = %q, want image/png", ct)
	}
	if !store.public["a__boxed.png"] {
		t.Error("output was not marked public")
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a valid PNG: %v", err)
	}
	if got := img.Bounds(); got.Dx() != 64 || got.Dy() != 48 {
		t.Errorf("output dimensions = %dx%d, want 64x48", got.Dx(), got.Dy())
	}

	// The individual fragment is outlined.
	if !anyReddish(img, image.Rect(28, 28, 43, 43)) {
		t.Error("no outline drawn around the detected fragment")
	}
	// The first (whole-image aggregate) fragment is not.
	if anyReddish(img, image.Rect(3, 3, 18, 18)) {
		t.Error("outline drawn around the aggregate fragment; the first annotation must be excluded")
	}
}

func TestRunSkipsAnnotatedInputs(t *testing.T) {
	objects := map[string][]byte{
		"a.png":        whitePNG(t, 32, 32),
		"a__boxed.png": whitePNG(t, 32, 32),
		"b.jpg":        whitePNG(t, 32, 32),
		"notes.txt":    []byte("not an image, not a candidate either"),
	}
	store := newFakeStore(objects, "a.png", "a__boxed.png", "b.jpg", "notes.txt")
	detector := &fakeDetector{results: []*detect.Detection{detection("x", box(10, 10, 20, 20))}}

	urls, err := workflow.New(store, detector).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{
		"https://storage.example.test/bucket/a__boxed.png",
		"https://storage.example.test/bucket/b__boxed.png",
	}
	if len(urls) != len(want) || urls[0] != want[0] || urls[1] != want[1] {
		t.Fatalf("Run() urls = %v, want %v", urls, want)
	}
	if len(detector.calls) != 1 {
		t.Errorf("detector called %d times, want 1 (only for b.jpg)", len(detector.calls))
	}
}

func TestRunIsIdempotent(t *testing.T) {
	store := newFakeStore(map[string][]byte{"a.png": whitePNG(t, 32, 32)}, "a.png")

	first := &fakeDetector{results: []*detect.Detection{detection("x", box(10, 10, 20, 20))}}
	urls1, err := workflow.New(store, first).Run(context.Background())
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	second := &fakeDetector{results: []*detect.Detection{detection("x", box(10, 10, 20, 20))}}
	urls2, err := workflow.New(store, second).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if len(second.calls) != 0 {
		t.Errorf("second run called the detector %d times, want 0", len(second.calls))
	}
	if len(urls1) != len(urls2) || urls1[0] != urls2[0] {
		t.Errorf("second run urls = %v, want %v", urls2, urls1)
	}
	if got := len(store.uploaded); got != 1 {
		t.Errorf("total uploads across both runs = %d, want 1", got)
	}
}

func TestRunPreprocessingFallback(t *testing.T) {
	original := whitePNG(t, 32, 32)
	store := newFakeStore(map[string][]byte{"a.png": original}, "a.png")
	detector := &fakeDetector{results: []*detect.Detection{
		{}, // first pass: nothing found
		detection("x", box(10, 10, 20, 20)),
	}}

	urls, err := workflow.New(store, detector).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(detector.calls) != 2 {
		t.Fatalf("detector called %d times, want 2 (original + preprocessed)", len(detector.calls))
	}
	if !bytes.Equal(detector.calls[0], original) {
		t.Error("first detection call did not receive the original bytes")
	}
	if bytes.Equal(detector.calls[1], original) {
		t.Error("second detection call received the original bytes, want preprocessed")
	}
	if len(urls) != 1 {
		t.Fatalf("Run() urls = %v, want one output", urls)
	}
}

func TestRunNoTextAfterFallback(t *testing.T) {
	store := newFakeStore(map[string][]byte{"a.png": whitePNG(t, 32, 32)}, "a.png")
	detector := &fakeDetector{} // always empty

	urls, err := workflow.New(store, detector).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(detector.calls) != 2 {
		t.Errorf("detector called %d times, want 2 (fallback is tried exactly once)", len(detector.calls))
	}
	if len(urls) != 0 {
		t.Errorf("Run() urls = %v, want none", urls)
	}
	if len(store.uploaded) != 0 {
		t.Errorf("uploads = %v, want none", store.uploaded)
	}
}

func TestRunSkipsCorruptObject(t *testing.T) {
	objects := map[string][]byte{
		"bad.png":  []byte("definitely not an image"),
		"good.png": whitePNG(t, 32, 32),
	}
	store := newFakeStore(objects, "bad.png", "good.png")
	detector := &fakeDetector{results: []*detect.Detection{detection("x", box(10, 10, 20, 20))}}

	urls, err := workflow.New(store, detector).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(detector.calls) != 1 {
		t.Errorf("detector called %d times, want 1 (corrupt object skipped before detection)", len(detector.calls))
	}
	want := "https://storage.example.test/bucket/good__boxed.png"
	if len(urls) != 1 || urls[0] != want {
		t.Errorf("Run() urls = %v, want [%s]", urls, want)
	}
}

func TestRunSkipsFailedDownload(t *testing.T) {
	objects := map[string][]byte{
		"a.png": whitePNG(t, 32, 32),
		"b.png": whitePNG(t, 32, 32),
	}
	store := newFakeStore(objects, "a.png", "b.png")
	store.downloadErr["a.png"] = errors.New("connection reset")
	detector := &fakeDetector{results: []*detect.Detection{detection("x", box(10, 10, 20, 20))}}

	urls, err := workflow.New(store, detector).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := "https://storage.example.test/bucket/b__boxed.png"
	if len(urls) != 1 || urls[0] != want {
		t.Errorf("Run() urls = %v, want [%s]", urls, want)
	}
}

func TestRunDetectionErrorAbortsBatch(t *testing.T) {
	objects := map[string][]byte{
		"a.png": whitePNG(t, 32, 32),
		"b.png": whitePNG(t, 32, 32),
	}
	store := newFakeStore(objects, "a.png", "b.png")
	detector := &fakeDetector{err: detect.ErrDetectionFailed}

	_, err := workflow.New(store, detector).Run(context.Background())
	if !errors.Is(err, detect.ErrDetectionFailed) {
		t.Fatalf("Run() error = %v, want ErrDetectionFailed", err)
	}
	if len(detector.calls) != 1 {
		t.Errorf("detector called %d times, want 1 (batch aborts on first service error)", len(detector.calls))
	}
	if len(store.uploaded) != 0 {
		t.Errorf("uploads = %v, want none", store.uploaded)
	}
}

func TestRunUploadErrorAbortsBatch(t *testing.T) {
	store := newFakeStore(map[string][]byte{"a.png": whitePNG(t, 32, 32)}, "a.png")
	store.uploadErr = errors.New("backend unavailable")
	detector := &fakeDetector{results: []*detect.Detection{detection("x", box(10, 10, 20, 20))}}

	_, err := workflow.New(store, detector).Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want upload failure to propagate")
	}
}

func TestRunRefreshDeletesOutputsFirst(t *testing.T) {
	objects := map[string][]byte{
		"a.png":        whitePNG(t, 32, 32),
		"a__boxed.png": whitePNG(t, 32, 32),
	}
	store := newFakeStore(objects, "a.png", "a__boxed.png")
	detector := &fakeDetector{results: []*detect.Detection{detection("x", box(10, 10, 20, 20))}}

	urls, err := workflow.New(store, detector, workflow.WithRefresh(true)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(store.deleted) != 1 || store.deleted[0] != "a__boxed.png" {
		t.Errorf("deleted = %v, want [a__boxed.png]", store.deleted)
	}
	if len(detector.calls) != 1 {
		t.Errorf("detector called %d times, want 1 (input re-annotated after refresh)", len(detector.calls))
	}
	want := "https://storage.example.test/bucket/a__boxed.png"
	if len(urls) != 1 || urls[0] != want {
		t.Errorf("Run() urls = %v, want [%s]", urls, want)
	}
}

func TestRunResultOrder(t *testing.T) {
	objects := map[string][]byte{
		"b.png":        whitePNG(t, 32, 32),
		"a__boxed.png": whitePNG(t, 32, 32),
		"c.png":        whitePNG(t, 32, 32),
	}
	store := newFakeStore(objects, "b.png", "a__boxed.png", "c.png")
	detector := &fakeDetector{results: []*detect.Detection{detection("x", box(10, 10, 20, 20))}}

	urls, err := workflow.New(store, detector).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{
		"https://storage.example.test/bucket/a__boxed.png",
		"https://storage.example.test/bucket/b__boxed.png",
		"https://storage.example.test/bucket/c__boxed.png",
	}
	if len(urls) != len(want) {
		t.Fatalf("Run() urls = %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q (existing outputs first, then new in listing order)", i, urls[i], want[i])
		}
	}
}
