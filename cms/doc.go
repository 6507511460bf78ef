// Package cms is the color management layer of the converter. It decides
// which ICC transform a conversion needs, creates it at most once through
// the cmm engine and applies it to single colors and bitmaps.
//
// A Manager owns one ProfileStore (a profile per color space) and one
// TransformCache. Policy changes and profile changes invalidate exactly the
// cached transforms that depend on them.
//
// # Colors
//
// A Color carries normalized components, alpha and an optional name. Spot
// colors carry no components of their own; they hold an RGB and/or CMYK
// representation that conversions fall back to.
//
// # Display
//
// Display is the color space of the output device. It is backed by an
// optional display profile; when none is configured display colors are
// plain RGB.
package cms
