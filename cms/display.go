package cms

import "github.com/wudi/queconverter/cmm"

// displayTarget is Display when a display profile is configured and in
// use, RGB otherwise.
func (m *Manager) displayTarget() cmm.ColorSpace {
	if m.policy.UseDisplayProfile && m.profiles.Has(cmm.Display) {
		return cmm.Display
	}
	return cmm.RGB
}

// DisplayColor returns the components c is shown with on screen, without
// alpha. With proofing on, non-CMYK colors are simulated through the CMYK
// profile first.
func (m *Manager) DisplayColor(c Color) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.displayColor(c)
}

func (m *Manager) displayColor(c Color) ([]float64, error) {
	if !m.policy.UseCMS {
		rgb, err := m.toSpace(c, cmm.RGB)
		if err != nil {
			return nil, err
		}
		return rgb.Values, nil
	}

	target := m.displayTarget()
	if !m.policy.Proofing {
		switch c.Space {
		case target:
			return append([]float64(nil), c.Values...), nil
		case cmm.Spot:
			fb, err := spotFallback(c, m.policy.ProofForSpot)
			if err != nil {
				return nil, err
			}
			return m.displayColor(fb)
		default:
			return m.convert(c.Space, target, c.Values)
		}
	}

	switch c.Space {
	case cmm.CMYK:
		return m.convert(cmm.CMYK, target, c.Values)
	case cmm.Spot:
		fb, err := spotFallback(c, m.policy.ProofForSpot)
		if err != nil {
			return nil, err
		}
		if fb.Space == target {
			return fb.Values, nil
		}
		return m.convert(fb.Space, target, fb.Values)
	default:
		return m.proof(c.Space, c.Values)
	}
}

// DisplayColor255 is DisplayColor scaled to 8 bits.
func (m *Manager) DisplayColor255(c Color) ([]uint8, error) {
	v, err := m.DisplayColor(c)
	if err != nil {
		return nil, err
	}
	return Val255(v), nil
}
