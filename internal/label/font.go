package label

import (
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

const (
	// DefaultFont is looked up when no font is configured.
	DefaultFont = "arial.ttf"

	// DefaultFontSize is the caption size in points.
	DefaultFontSize = 18.0

	dpi = 72
)

// Fallback is the built-in bitmap face used when no TrueType font is found.
var Fallback font.Face = basicfont.Face7x13

// For testing
var (
	runtimeGOOS = runtime.GOOS
	currentUser = user.Current
	fontDirs    = systemFontDirs
)

// LoadFace resolves ref to a TrueType font and opens it at size points.
// ref is either a path or a bare file name searched for in the working
// directory and the platform font directories. When nothing usable is found
// it returns Fallback and false.
func LoadFace(ref string, size float64) (font.Face, bool) {
	face, err := loadTrueType(ref, size)
	if err != nil {
		return Fallback, false
	}
	return face, true
}

func loadTrueType(ref string, size float64) (font.Face, error) {
	if ref == "" {
		return nil, fmt.Errorf("no font configured")
	}

	path, err := resolve(ref)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font %s: %w", path, err)
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face for %s: %w", path, err)
	}

	return face, nil
}

// resolve finds the font file for ref. Names containing a path separator
// are used as-is.
func resolve(ref string) (string, error) {
	if strings.ContainsRune(ref, filepath.Separator) || strings.ContainsRune(ref, '/') {
		if _, err := os.Stat(ref); err != nil {
			return "", err
		}
		return ref, nil
	}

	if _, err := os.Stat(ref); err == nil {
		return ref, nil
	}

	for _, dir := range fontDirs() {
		if dir == "" {
			continue
		}
		if found := findFile(dir, ref); found != "" {
			return found, nil
		}
	}

	return "", fmt.Errorf("font %q not found", ref)
}

// findFile walks dir for a file named name, ignoring case.
func findFile(dir, name string) string {
	var found string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable directories are skipped, not fatal
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.EqualFold(d.Name(), name) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// systemFontDirs lists the standard font directories. The home directory
// comes from the user database, not the environment.
func systemFontDirs() []string {
	var home string
	if u, err := currentUser(); err == nil {
		home = u.HomeDir
	}

	switch runtimeGOOS {
	case "darwin":
		return []string{
			"/System/Library/Fonts",
			"/Library/Fonts",
			userDir(home, "Library", "Fonts"),
		}
	case "windows":
		return []string{
			`C:\Windows\Fonts`,
			userDir(home, "AppData", "Local", "Microsoft", "Windows", "Fonts"),
		}
	default:
		return []string{
			"/usr/share/fonts",
			"/usr/local/share/fonts",
			userDir(home, ".local", "share", "fonts"),
			userDir(home, ".fonts"),
		}
	}
}

// userDir joins elem under home, or returns "" when home is unknown.
func userDir(home string, elem ...string) string {
	if home == "" {
		return ""
	}
	return filepath.Join(append([]string{home}, elem...)...)
}
