// Package instruments owns the canonical instrument vocabulary and the
// finalization pipeline that turns raw classifier labels into the single
// authoritative instrument list: alias normalization, stable cross-source
// dedup, family collapse into section tokens, and the strings soft-guard.
package instruments
