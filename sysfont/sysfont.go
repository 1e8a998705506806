// Package sysfont discovers installed font files by family name.
//
// The scanner walks the platform font directories once, probes each
// TrueType/OpenType file for its family names, and answers candidate
// queries from the resulting index.
package sysfont

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-text/typesetting/font"
)

// Match is a located font file.
type Match struct {
	Data   []byte
	Family string
	Path   string
}

// Finder locates an installed font file for the first matching family
// candidate. A nil Match with nil error means nothing matched.
type Finder interface {
	Find(candidates []string) (*Match, error)
}

// NewSystemFinder returns a Finder over the current platform's font
// directories.
func NewSystemFinder() Finder {
	return &dirFinder{dirs: platformFontDirs()}
}

// NewDirFinder returns a Finder over explicit directories, used for
// tests and for overriding discovery.
func NewDirFinder(dirs ...string) Finder {
	return &dirFinder{dirs: dirs}
}

func platformFontDirs() []string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return []string{"/System/Library/Fonts", "/Library/Fonts", filepath.Join(home, "Library/Fonts")}
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		return []string{filepath.Join(windir, "Fonts")}
	default:
		home, _ := os.UserHomeDir()
		return []string{
			"/usr/share/fonts",
			"/usr/local/share/fonts",
			filepath.Join(home, ".fonts"),
			filepath.Join(home, ".local/share/fonts"),
		}
	}
}

type dirFinder struct {
	dirs  []string
	index map[string]string // normalized family -> file path
}

func (f *dirFinder) Find(candidates []string) (*Match, error) {
	if f.index == nil {
		f.buildIndex()
	}
	for _, family := range candidates {
		path, ok := f.index[normalizeFamily(family)]
		if !ok {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return &Match{Data: data, Family: family, Path: path}, nil
	}
	return nil, nil
}

func (f *dirFinder) buildIndex() {
	f.index = make(map[string]string)
	for _, dir := range f.dirs {
		filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".ttf", ".otf", ".ttc":
			default:
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil
			}
			for _, family := range familiesOf(data) {
				key := normalizeFamily(family)
				if _, exists := f.index[key]; !exists {
					f.index[key] = path
				}
			}
			return nil
		})
	}
}

// familiesOf probes a font file for the family names of its faces.
// Unparseable files report no families.
func familiesOf(data []byte) []string {
	var families []string
	if bytes.HasPrefix(data, []byte("ttcf")) {
		faces, err := font.ParseTTC(bytes.NewReader(data))
		if err != nil {
			return nil
		}
		for _, face := range faces {
			families = append(families, face.Describe().Family)
		}
		return families
	}
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	return []string{face.Describe().Family}
}

func normalizeFamily(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch r {
		case ' ', '-', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
