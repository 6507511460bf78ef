package cms

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/wudi/queconverter/cmm"
)

// countingFactory wraps the real engine and counts transform creations.
type countingFactory struct {
	cmm.Factory

	mu      sync.Mutex
	creates map[string]int
	proofs  int
	delay   time.Duration
	fail    error
}

func newCountingFactory() *countingFactory {
	return &countingFactory{Factory: cmm.NewFactory(), creates: make(map[string]int)}
}

func (f *countingFactory) NewTransform(src cmm.Profile, srcSpace cmm.ColorSpace, dst cmm.Profile, dstSpace cmm.ColorSpace,
	intent cmm.RenderingIntent, flags cmm.Flags) (cmm.Transform, error) {
	f.mu.Lock()
	f.creates[fmt.Sprintf("%v->%v", srcSpace, dstSpace)]++
	delay, fail := f.delay, f.fail
	f.mu.Unlock()
	time.Sleep(delay)
	if fail != nil {
		return nil, fail
	}
	return f.Factory.NewTransform(src, srcSpace, dst, dstSpace, intent, flags)
}

func (f *countingFactory) NewProofingTransform(src cmm.Profile, srcSpace cmm.ColorSpace, dst cmm.Profile, dstSpace cmm.ColorSpace,
	proof cmm.Profile, proofIntent, dstIntent cmm.RenderingIntent, flags cmm.Flags, alarm cmm.AlarmCodes) (cmm.Transform, error) {
	f.mu.Lock()
	f.proofs++
	f.mu.Unlock()
	return f.Factory.NewProofingTransform(src, srcSpace, dst, dstSpace, proof, proofIntent, dstIntent, flags, alarm)
}

func (f *countingFactory) count(in, out cmm.ColorSpace) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates[fmt.Sprintf("%v->%v", in, out)]
}

func (f *countingFactory) proofCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.proofs
}

func (f *countingFactory) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.creates {
		n += c
	}
	return n
}

var errBrokenEngine = errors.New("broken engine")

func newTestManager(t *testing.T, opts ...Option) (*Manager, *countingFactory) {
	t.Helper()
	f := newCountingFactory()
	m, err := New(append([]Option{WithFactory(f)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, f
}

// variantProfile returns the built-in profile of space with other header
// flags, so it has other bytes but the same behavior. The flags are left
// out of the profile ID checksum.
func variantProfile(t *testing.T, space cmm.ColorSpace, bit byte) []byte {
	t.Helper()
	p, err := cmm.NewFactory().DefaultProfile(space)
	require.NoError(t, err)
	data := append([]byte(nil), p.Data()...)
	data[47] ^= bit
	return data
}

var approx = cmpopts.EquateApprox(0, 1e-3)

func assertValues(t *testing.T, want, got []float64) {
	t.Helper()
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

// opaqueRGB returns a w×h RGB image filled with c.
func opaqueRGB(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
