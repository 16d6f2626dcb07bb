package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tinytelemetry/refresher/internal/model"
	"github.com/tinytelemetry/refresher/internal/refresh"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Palette colors used across the TUI. InitializeSkin replaces them.
var (
	ColorBlue   = lipgloss.Color("#007AFF")
	ColorGray   = lipgloss.Color("#B3B3B3")
	ColorNavy   = lipgloss.Color("#1B2A41")
	ColorWhite  = lipgloss.Color("#FFFFFF")
	ColorRed    = lipgloss.Color("#FF5F56")
	ColorGreen  = lipgloss.Color("#49E209")
	ColorYellow = lipgloss.Color("#FFBD2E")
)

// Skin holds the colors and affordance texts of the TUI.
type Skin struct {
	Name        string `yaml:"name"`
	PullText    string `yaml:"pull_text"`
	ReleaseText string `yaml:"release_text"`
	LoadingText string `yaml:"loading_text"`

	Colors SkinColors `yaml:"colors"`
}

// SkinColors are hex colors; empty values keep the default.
type SkinColors struct {
	Stroke    string `yaml:"stroke"`
	Separator string `yaml:"separator"`
	Label     string `yaml:"label"`
	StatusBg  string `yaml:"status_bg"`
	StatusFg  string `yaml:"status_fg"`
	Error     string `yaml:"error"`
	Highlight string `yaml:"highlight"`
	Warning   string `yaml:"warning"`
}

// DefaultSkin returns the built-in skin.
func DefaultSkin() Skin {
	return Skin{
		Name:        model.DefaultSkin,
		PullText:    refresh.DefaultPullText,
		ReleaseText: refresh.DefaultReleaseText,
		LoadingText: refresh.DefaultLoadingText,
		Colors: SkinColors{
			Stroke:    "#007AFF",
			Separator: "#B3B3B3",
			Label:     "#B3B3B3",
			StatusBg:  "#1B2A41",
			StatusFg:  "#FFFFFF",
			Error:     "#FF5F56",
			Highlight: "#49E209",
			Warning:   "#FFBD2E",
		},
	}
}

var activeSkin = DefaultSkin()

// ActiveSkin returns the skin set by InitializeSkin.
func ActiveSkin() Skin { return activeSkin }

// LoadSkin reads a yaml skin file. Fields it leaves out keep their
// default values.
func LoadSkin(path string) (Skin, error) {
	skin := DefaultSkin()
	data, err := os.ReadFile(path)
	if err != nil {
		return skin, err
	}
	if err := yaml.Unmarshal(data, &skin); err != nil {
		return DefaultSkin(), fmt.Errorf("parse skin %s: %w", path, err)
	}
	return skin, nil
}

// SkinPath returns where the named skin is looked up.
func SkinPath(name, configDir string) string {
	return filepath.Join(configDir, "skins", name+".yml")
}

// InitializeSkin loads the named skin from configDir/skins and makes it
// active. The default skin needs no file. On error the default skin stays
// active.
func InitializeSkin(name, configDir string) error {
	if name == "" || name == model.DefaultSkin {
		applySkin(DefaultSkin())
		return nil
	}
	skin, err := LoadSkin(SkinPath(name, configDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("skin %q not found in %s", name, filepath.Dir(SkinPath(name, configDir)))
		}
		return err
	}
	if skin.Name == "" {
		skin.Name = name
	}
	applySkin(skin)
	return nil
}

func applySkin(s Skin) {
	activeSkin = s
	c := s.Colors
	ColorBlue = lipgloss.Color(c.Stroke)
	ColorGray = lipgloss.Color(c.Separator)
	ColorNavy = lipgloss.Color(c.StatusBg)
	ColorWhite = lipgloss.Color(c.StatusFg)
	ColorRed = lipgloss.Color(c.Error)
	ColorGreen = lipgloss.Color(c.Highlight)
	ColorYellow = lipgloss.Color(c.Warning)
}

// ApplyTexts copies the skin's affordance texts onto r. Empty texts keep
// the renderer's defaults.
func (s Skin) ApplyTexts(r *refresh.TextRenderer) {
	if s.PullText != "" {
		r.PullText = s.PullText
	}
	if s.ReleaseText != "" {
		r.ReleaseText = s.ReleaseText
	}
	if s.LoadingText != "" {
		r.LoadingText = s.LoadingText
	}
}
