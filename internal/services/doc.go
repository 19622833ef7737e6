// Package services defines the shared error markers and wrapping helper used
// by every component that talks to an external tool or resource. Callers tag
// failures with services.Wrap and classify them later with errors.Is against
// the exported sentinels; Fatal picks out the classes that abort a track.
package services
