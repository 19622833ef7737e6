// Package scan expands analyze inputs into the list of audio files to
// process. Directories are walked recursively, hidden entries are skipped,
// and the result is deduplicated on the normalized key and sorted so runs
// over the same tree always submit the same work in the same order.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rhythmdb/internal/services"
	"rhythmdb/internal/trackkey"
)

// audioExtensions lists the containers the pipeline accepts.
var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".aif":  {},
	".aiff": {},
}

// IsAudioFile reports whether path carries a supported audio extension.
func IsAudioFile(path string) bool {
	_, ok := audioExtensions[trackkey.Ext(path)]
	return ok
}

// Extensions returns the supported extensions in sorted order.
func Extensions() []string {
	out := make([]string, 0, len(audioExtensions))
	for ext := range audioExtensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Collect resolves the given files and directories into absolute audio file
// paths. An explicit file argument must be a supported audio file; anything
// unsupported inside a directory is silently ignored.
func Collect(inputs ...string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	add := func(path string) {
		key := trackkey.Key(path)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, path)
	}

	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		abs, err := filepath.Abs(input)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "scan", "resolve input", input, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "scan", "stat input", input, err)
		}
		if !info.IsDir() {
			if !IsAudioFile(abs) {
				return nil, services.Wrap(services.ErrValidation, "scan", "unsupported file", abs, nil)
			}
			add(abs)
			continue
		}
		if err := walkAudio(abs, add); err != nil {
			return nil, err
		}
	}

	sort.Strings(out)
	return out, nil
}

// walkAudio descends root collecting supported files. Hidden files and
// directories are skipped, except for root itself so an explicitly named
// hidden folder still scans.
func walkAudio(root string, add func(string)) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if IsAudioFile(path) {
			add(path)
		}
		return nil
	})
	if err != nil {
		return services.Wrap(services.ErrValidation, "scan", "walk directory", root, err)
	}
	return nil
}
