package cms

import (
	"context"
	"fmt"
	"image"

	"github.com/wudi/queconverter/bitmap"
	"github.com/wudi/queconverter/cmm"
	"github.com/wudi/queconverter/observability"
)

// TransformBitmap converts img to mode, using the color space that mode
// stores. Mono output is dithered from gray by the image backend.
func (m *Manager) TransformBitmap(ctx context.Context, img image.Image, mode bitmap.Mode) (image.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	space, err := ModeSpace(mode)
	if err != nil {
		return nil, err
	}
	return m.convertImage(ctx, img, mode, space)
}

// TransformBitmapSpace converts img to mode, treating the output pixels as
// space. It is used to target Display with an RGB image.
func (m *Manager) TransformBitmapSpace(ctx context.Context, img image.Image, mode bitmap.Mode, space cmm.ColorSpace) (image.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if space == cmm.Spot || !space.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedTarget, space)
	}
	if want, err := ModeSpace(mode); err != nil {
		return nil, err
	} else if want != space.Physical() {
		return nil, fmt.Errorf("cms: mode %v cannot hold %v pixels", mode, space)
	}
	return m.convertImage(ctx, img, mode, space)
}

// DisplayImage returns the RGB image img is shown as on screen.
func (m *Manager) DisplayImage(ctx context.Context, img image.Image) (image.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.policy.UseCMS {
		return m.convertImage(ctx, img, bitmap.ModeRGB, cmm.RGB)
	}
	if m.policy.Proofing && bitmap.ModeOf(img) != bitmap.ModeCMYK {
		return m.proofBitmap(ctx, img)
	}
	return m.convertImage(ctx, img, bitmap.ModeRGB, m.displayTarget())
}

// ProofBitmap simulates img on the CMYK profile and returns the RGB result.
func (m *Manager) ProofBitmap(ctx context.Context, img image.Image) (image.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.proofBitmap(ctx, img)
}

func (m *Manager) proofBitmap(ctx context.Context, img image.Image) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("cms: nil image")
	}
	in := bitmap.ModeOf(img)
	if in == bitmap.ModeMono {
		img, in = bitmap.ToGray(img), bitmap.ModeGray
	}
	space, err := ModeSpace(in)
	if err != nil {
		return nil, err
	}
	t, err := m.cache.GetProof(ctx, space, m.proofParams())
	if err != nil {
		return nil, m.engineFailure(err)
	}
	return m.applyImage(ctx, t, img, in, bitmap.ModeRGB, space, cmm.Display)
}

// convertImage converts img to mode out holding pixels of space.
func (m *Manager) convertImage(ctx context.Context, img image.Image, out bitmap.Mode, space cmm.ColorSpace) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("cms: nil image")
	}
	in := bitmap.ModeOf(img)
	inSpace, err := ModeSpace(in)
	if err != nil {
		return nil, err
	}
	if in == out && inSpace == space {
		return bitmap.Copy(img), nil
	}
	if in == bitmap.ModeMono {
		img, in = bitmap.ToGray(img), bitmap.ModeGray
		if out == bitmap.ModeGray && space == cmm.Gray {
			return img, nil
		}
	}
	if out == bitmap.ModeMono {
		gray, err := m.bitmapTransform(ctx, img, in, bitmap.ModeGray, cmm.Gray)
		if err != nil {
			return nil, err
		}
		return bitmap.ToMono(gray, true), nil
	}
	return m.bitmapTransform(ctx, img, in, out, space)
}

func (m *Manager) bitmapTransform(ctx context.Context, img image.Image, in, out bitmap.Mode, space cmm.ColorSpace) (image.Image, error) {
	inSpace, err := ModeSpace(in)
	if err != nil {
		return nil, err
	}
	if !m.policy.UseCMS && in != bitmap.ModeLab {
		from, to := inSpace, space.Physical()
		return bitmap.Map(img, in, out, func(src, dst []float64) error {
			v, err := cmm.SimpleConvert(src, from, to)
			if err != nil {
				return err
			}
			copy(dst, v)
			return nil
		})
	}
	key := TransformKey{In: inSpace, Out: space, Intent: m.policy.intentFor(space), Flags: m.policy.Flags}
	t, err := m.cache.Get(ctx, key)
	if err != nil {
		return nil, m.engineFailure(err)
	}
	return m.applyImage(ctx, t, img, in, out, inSpace, space)
}

func (m *Manager) applyImage(ctx context.Context, t cmm.Transform, img image.Image, in, out bitmap.Mode,
	inSpace, outSpace cmm.ColorSpace) (image.Image, error) {
	_, span := m.tracer.StartSpan(ctx, observability.SpanBitmapTransform)
	defer span.Finish()
	span.SetTag("in", in.String())
	span.SetTag("out", out.String())

	res, err := t.ConvertImage(img, in, out)
	if err != nil {
		span.SetError(err)
		return nil, m.engineFailure(engineError("apply", inSpace, outSpace, err))
	}
	return res, nil
}

// AdjustEmbeddedProfile converts img from its embedded profile to the
// session profile of the image's color space. The transform is built for
// this call only and is not cached.
func (m *Manager) AdjustEmbeddedProfile(ctx context.Context, img image.Image, profile []byte) (image.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if img == nil {
		return nil, fmt.Errorf("cms: nil image")
	}
	ctx, span := m.tracer.StartSpan(ctx, observability.SpanEmbeddedAdjust)
	defer span.Finish()

	mode := bitmap.ModeOf(img)
	work, workMode := img, mode
	if mode == bitmap.ModeMono {
		work, workMode = bitmap.ToGray(img), bitmap.ModeGray
	}
	space, err := ModeSpace(workMode)
	if err != nil {
		return nil, err
	}

	embedded, err := m.factory.NewProfile(profile)
	if err != nil {
		span.SetError(err)
		return nil, m.engineFailure(engineError("profile", space, space, err))
	}
	defer embedded.Release()
	if embedded.ColorSpace() != space {
		return nil, fmt.Errorf("cms: embedded profile %q is %v, image is %v", embedded.Name(), embedded.ColorSpace(), space)
	}
	session, err := m.profiles.Get(space)
	if err != nil {
		return nil, err
	}
	t, err := m.factory.NewTransform(embedded, space, session, space, m.policy.intentFor(space), m.policy.Flags)
	if err != nil {
		span.SetError(err)
		return nil, m.engineFailure(engineError("create", space, space, err))
	}
	defer t.Release()

	res, err := m.applyImage(ctx, t, work, workMode, workMode, space, space)
	if err != nil {
		return nil, err
	}
	if mode == bitmap.ModeMono {
		return bitmap.ToMono(res, true), nil
	}
	return res, nil
}
