// Package audio manages the azan sound files: installing configured local
// recordings into the directory Home Assistant serves under /local/azan, and
// choosing which recording plays for a given prayer.
package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"minaret/internal/config"
	"minaret/internal/prayer"

	"go.uber.org/zap"
)

// Variant identifies one of the installed recordings.
type Variant string

const (
	VariantFull   Variant = "full"
	VariantShort  Variant = "short"
	VariantFajr   Variant = "fajr"
	VariantCustom Variant = "custom"
)

// installNames are the destination filenames per variant.
var installNames = map[Variant]string{
	VariantFull:   "azan_full.mp3",
	VariantShort:  "azan_short.mp3",
	VariantFajr:   "fajr_azan.mp3",
	VariantCustom: "azan_custom.mp3",
}

// Library holds the installed recordings.
type Library struct {
	dir    string
	logger *zap.Logger

	mu    sync.RWMutex
	files map[Variant]string // variant -> installed filename
}

// NewLibrary creates a library rooted at dir, typically the Home Assistant
// www/azan folder.
func NewLibrary(dir string, logger *zap.Logger) *Library {
	return &Library{
		dir:    dir,
		logger: logger.Named("audio"),
		files:  make(map[Variant]string),
	}
}

// Prepare installs every recording the config names. A missing or unreadable
// source is logged and skipped; playback falls back across the remaining
// variants. Prepare fails only when no recording at all could be installed.
func (l *Library) Prepare(sounds config.SoundConfig) error {
	sources := map[Variant]string{
		VariantFull:   sounds.FullFile,
		VariantShort:  sounds.ShortFile,
		VariantFajr:   sounds.FajrFile,
		VariantCustom: sounds.CustomFile,
	}

	installed := 0
	for variant, src := range sources {
		if src == "" {
			continue
		}
		if err := l.Install(variant, src); err != nil {
			l.logger.Warn("Failed to install recording",
				zap.String("variant", string(variant)),
				zap.String("source", src),
				zap.Error(err))
			continue
		}
		installed++
	}

	if installed == 0 {
		return fmt.Errorf("no azan recordings available")
	}
	return nil
}

// Install copies a source recording into the library directory. A marker file
// next to the destination remembers the source path so an unchanged source is
// not copied again.
func (l *Library) Install(variant Variant, sourcePath string) error {
	destName, ok := installNames[variant]
	if !ok {
		return fmt.Errorf("unknown variant %q", variant)
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create audio dir: %w", err)
	}

	destPath := filepath.Join(l.dir, destName)
	markerPath := filepath.Join(l.dir, "."+destName+".src")

	if cached(destPath, markerPath, sourcePath) {
		l.logger.Debug("Recording already installed",
			zap.String("variant", string(variant)))
	} else {
		if err := copyFile(sourcePath, destPath); err != nil {
			return err
		}
		if err := os.WriteFile(markerPath, []byte(sourcePath), 0o644); err != nil {
			return fmt.Errorf("failed to write marker: %w", err)
		}
		l.logger.Info("Installed recording",
			zap.String("variant", string(variant)),
			zap.String("source", sourcePath))
	}

	l.mu.Lock()
	l.files[variant] = destName
	l.mu.Unlock()
	return nil
}

func cached(destPath, markerPath, sourcePath string) bool {
	if _, err := os.Stat(destPath); err != nil {
		return false
	}
	prev, err := os.ReadFile(markerPath)
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(prev)) == sourcePath
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy audio: %w", err)
	}
	return nil
}

// has reports whether a variant is installed (callers hold no lock).
func (l *Library) has(v Variant) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.files[v]
	return ok
}

// Ready reports whether at least one recording is installed.
func (l *Library) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.files) > 0
}

// Resolve picks the installed filename for the given prayer and configured
// sound selection. Fajr prefers its dedicated recording when the full sound
// is requested. When the preferred variant is missing, Resolve falls back
// through the remaining variants before giving up.
func (l *Library) Resolve(name prayer.Name, selection string) (string, bool) {
	var preferred Variant
	switch selection {
	case config.SoundShort:
		preferred = VariantShort
	case config.SoundCustom:
		preferred = VariantCustom
		if name == prayer.Fajr && l.has(VariantFajr) {
			preferred = VariantFajr
		}
	default:
		preferred = VariantFull
		if name == prayer.Fajr && l.has(VariantFajr) {
			preferred = VariantFajr
		}
	}

	order := []Variant{preferred}
	if name == prayer.Fajr {
		order = append(order, VariantFajr)
	}
	order = append(order, VariantFull, VariantCustom, VariantShort)

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, v := range order {
		if f, ok := l.files[v]; ok {
			return f, true
		}
	}
	return "", false
}

// MediaURL builds the URL a media player fetches the recording from.
func MediaURL(baseURL, filename string) string {
	return strings.TrimRight(baseURL, "/") + "/local/azan/" + filename
}
