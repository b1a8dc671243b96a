package theme

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
)

// Variant identifies the thematic palette/style family.
type Variant string

const (
	VariantOcean  Variant = "ocean"
	VariantMeadow Variant = "meadow"
	VariantEmber  Variant = "ember"
	VariantMono   Variant = "mono"
)

// DefaultVariant is used when no variant is configured.
const DefaultVariant = VariantOcean

// SemanticRoles defines stable semantic color slots used across the UI.
//
// Components should generally depend on these semantic roles rather than
// variant-specific color literals.
type SemanticRoles struct {
	Primary string
	Accent  string
	Muted   string
	Danger  string
	Success string
	Border  string
}

// Style describes presentational attributes for a UI element.
type Style struct {
	Foreground string
	Background string
	Bold       bool
}

// StyleSet provides strongly-typed styles for the poll's UI surfaces.
type StyleSet struct {
	Question Style
	Options  Style
	Selected Style
	Summary  Style
	Button   Style
	Notice   Style
	Warning  Style
}

// Bundle contains all display styles needed by the poll view.
type Bundle struct {
	StyleSet
	Roles SemanticRoles
}

// TermProfile describes terminal rendering capabilities derived from TERM.
type TermProfile struct {
	Colors    int
	TrueColor bool
	IsTTY     bool
}

// ColorProfile maps the capability profile onto a termenv profile.
func (p TermProfile) ColorProfile() termenv.Profile {
	switch {
	case !p.IsTTY || p.Colors == 0:
		return termenv.Ascii
	case p.TrueColor:
		return termenv.TrueColor
	case p.Colors >= 256:
		return termenv.ANSI256
	default:
		return termenv.ANSI
	}
}

// TermProfileDetector maps a TERM value to a terminal capability profile.
type TermProfileDetector func(term string) TermProfile

// ErrUnknownVariant is returned when a requested variant is not known.
var ErrUnknownVariant = errors.New("unknown theme variant")

var (
	termProfileCache sync.Map
	knownProfiles    = map[string]TermProfile{
		"dumb":           {Colors: 0, TrueColor: false, IsTTY: false},
		"ansi":           {Colors: 8, TrueColor: false, IsTTY: true},
		"linux":          {Colors: 16, TrueColor: false, IsTTY: true},
		"xterm":          {Colors: 16, TrueColor: false, IsTTY: true},
		"xterm-256color": {Colors: 256, TrueColor: false, IsTTY: true},
		"screen":         {Colors: 8, TrueColor: false, IsTTY: true},
		"tmux":           {Colors: 256, TrueColor: false, IsTTY: true},
		"tmux-256color":  {Colors: 256, TrueColor: false, IsTTY: true},
		"vt100":          {Colors: 8, TrueColor: false, IsTTY: true},
		"xterm-kitty":    {Colors: 1 << 24, TrueColor: true, IsTTY: true},
		"wezterm":        {Colors: 1 << 24, TrueColor: true, IsTTY: true},
	}
)

var palettes = map[Variant]Bundle{
	VariantOcean: {
		StyleSet: StyleSet{
			Question: Style{Foreground: "#FFFFFF", Background: "#1E40AF", Bold: true},
			Options:  Style{Foreground: "#1F2937", Background: "#F9FAFB"},
			Selected: Style{Foreground: "#FFFFFF", Background: "#3B82F6", Bold: true},
			Summary:  Style{Foreground: "#1F2937", Background: "#86EFAC"},
			Button:   Style{Foreground: "#FFFFFF", Background: "#3B82F6", Bold: true},
			Notice:   Style{Foreground: "#FFFFFF", Background: "#323232"},
			Warning:  Style{Foreground: "#FFFFFF", Background: "#B91C1C", Bold: true},
		},
		Roles: SemanticRoles{Primary: "#1E40AF", Accent: "#3B82F6", Muted: "#D1D5DB", Danger: "#EF4444", Success: "#22C55E", Border: "#FFFFFF"},
	},
	VariantMeadow: {
		StyleSet: StyleSet{
			Question: Style{Foreground: "#F0FDF4", Background: "#166534", Bold: true},
			Options:  Style{Foreground: "#14532D", Background: "#F0FDF4"},
			Selected: Style{Foreground: "#F0FDF4", Background: "#16A34A", Bold: true},
			Summary:  Style{Foreground: "#14532D", Background: "#BBF7D0"},
			Button:   Style{Foreground: "#F0FDF4", Background: "#15803D", Bold: true},
			Notice:   Style{Foreground: "#F0FDF4", Background: "#14532D"},
			Warning:  Style{Foreground: "#FFF1F2", Background: "#9F1239", Bold: true},
		},
		Roles: SemanticRoles{Primary: "#166534", Accent: "#16A34A", Muted: "#86EFAC", Danger: "#E11D48", Success: "#22C55E", Border: "#4ADE80"},
	},
	VariantEmber: {
		StyleSet: StyleSet{
			Question: Style{Foreground: "#FFFFFF", Background: "#7A1421", Bold: true},
			Options:  Style{Foreground: "#2D050A", Background: "#FCECEE"},
			Selected: Style{Foreground: "#FFFFFF", Background: "#A11E2D", Bold: true},
			Summary:  Style{Foreground: "#2D050A", Background: "#F28A94"},
			Button:   Style{Foreground: "#FFFFFF", Background: "#A11E2D", Bold: true},
			Notice:   Style{Foreground: "#FFECEE", Background: "#8A1A27"},
			Warning:  Style{Foreground: "#2D050A", Background: "#F4B183", Bold: true},
		},
		Roles: SemanticRoles{Primary: "#7A1421", Accent: "#A11E2D", Muted: "#8A1A27", Danger: "#C92035", Success: "#5B9B68", Border: "#B95765"},
	},
	VariantMono: grayscaleBundle(),
}

var variants = [...]Variant{VariantOcean, VariantMeadow, VariantEmber, VariantMono}

// Variants lists every known variant in a stable order.
func Variants() []Variant {
	out := make([]Variant, len(variants))
	copy(out, variants[:])
	return out
}

// ParseVariant normalizes a variant name and reports whether it is known.
func ParseVariant(name string) (Variant, bool) {
	v := Variant(strings.ToLower(strings.TrimSpace(name)))
	_, ok := palettes[v]
	return v, ok
}

// Resolve resolves a concrete style bundle for a variant and TERM value.
//
// For lower-capability terminals (16 colors and below), Resolve returns a
// monochrome/high-contrast bundle unless color is explicitly forced.
func Resolve(variant Variant, term string) (Bundle, error) {
	return resolveWith(variant, ResolveOptions{Term: term}, detectTermProfile)
}

// ResolveWithDetector resolves a bundle using a caller-provided TERM detector.
func ResolveWithDetector(variant Variant, opts ResolveOptions, detector TermProfileDetector) (Bundle, TermProfile, error) {
	if detector == nil {
		detector = detectTermProfile
	}
	return resolveWithProfile(variant, opts, detector)
}

// DetectTermProfile maps TERM to a terminal capability profile.
func DetectTermProfile(term string) TermProfile {
	return detectTermProfile(term)
}

// ResolveOptions controls how a bundle is selected once a TERM profile exists.
type ResolveOptions struct {
	Term       string
	ForceColor bool
	ForceMono  bool
}

func resolveWith(variant Variant, opts ResolveOptions, detector TermProfileDetector) (Bundle, error) {
	bundle, _, err := resolveWithProfile(variant, opts, detector)
	return bundle, err
}

func resolveWithProfile(variant Variant, opts ResolveOptions, detector TermProfileDetector) (Bundle, TermProfile, error) {
	base, ok := palettes[variant]
	if !ok {
		return Bundle{}, TermProfile{}, fmt.Errorf("%w: %s", ErrUnknownVariant, variant)
	}

	term := strings.TrimSpace(opts.Term)
	if term == "" {
		term = os.Getenv("TERM")
	}

	profile := detector(term)
	if opts.ForceColor && !profile.IsTTY {
		profile = TermProfile{Colors: 256, IsTTY: true}
	}
	if shouldUseMonochrome(profile, opts) {
		return grayscaleBundle(), profile, nil
	}

	return base, profile, nil
}

func shouldUseMonochrome(profile TermProfile, opts ResolveOptions) bool {
	if opts.ForceMono {
		return true
	}
	if opts.ForceColor {
		return false
	}
	if !profile.IsTTY {
		return true
	}
	return !profile.TrueColor && profile.Colors < 256
}

func detectTermProfile(term string) TermProfile {
	norm := strings.ToLower(strings.TrimSpace(term))
	if cached, ok := termProfileCache.Load(norm); ok {
		return cached.(TermProfile)
	}

	profile := detectTermProfileUncached(norm)
	termProfileCache.Store(norm, profile)
	return profile
}

func detectTermProfileUncached(norm string) TermProfile {
	if norm == "" {
		return TermProfile{Colors: 0, TrueColor: false, IsTTY: false}
	}

	if p, ok := knownProfiles[norm]; ok {
		return p
	}

	profile := TermProfile{Colors: 16, TrueColor: false, IsTTY: true}
	if strings.Contains(norm, "truecolor") || strings.Contains(norm, "24bit") || strings.Contains(norm, "kitty") || strings.Contains(norm, "wezterm") {
		profile.TrueColor = true
		profile.Colors = 1 << 24
	}
	if strings.Contains(norm, "256") {
		profile.Colors = 256
	}
	if strings.Contains(norm, "dumb") {
		profile = TermProfile{Colors: 0, TrueColor: false, IsTTY: false}
	}
	if strings.HasPrefix(norm, "screen") && !strings.Contains(norm, "256") {
		profile.Colors = 8
	}

	return profile
}

func grayscaleBundle() Bundle {
	return Bundle{
		StyleSet: StyleSet{
			Question: Style{Foreground: "#FFFFFF", Background: "#111111", Bold: true},
			Options:  Style{Foreground: "#F2F2F2", Background: "#1A1A1A"},
			Selected: Style{Foreground: "#000000", Background: "#E6E6E6", Bold: true},
			Summary:  Style{Foreground: "#F2F2F2", Background: "#222222"},
			Button:   Style{Foreground: "#000000", Background: "#CFCFCF", Bold: true},
			Notice:   Style{Foreground: "#FFFFFF", Background: "#000000"},
			Warning:  Style{Foreground: "#000000", Background: "#E6E6E6", Bold: true},
		},
		Roles: SemanticRoles{Primary: "#111111", Accent: "#FFFFFF", Muted: "#8F8F8F", Danger: "#E6E6E6", Success: "#CFCFCF", Border: "#8F8F8F"},
	}
}
