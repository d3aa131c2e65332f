package environment

import (
	"fmt"
	"strings"
)

// Style is the presentation of an environment shared by the banner and the
// popup so both surfaces render the same label, colours and text.
type Style struct {
	Label string

	// StatusBackground and StatusForeground colour the popup status badge.
	StatusBackground string
	StatusForeground string

	// BannerColor is the solid background of the in-page banner.
	BannerColor string
	BannerText  string

	Title   string
	Message string

	// Alert marks environments where changes affect real users.
	Alert bool
}

var styles = map[Environment]Style{
	Production: {
		Label:            "Production",
		StatusBackground: "#f8d7da",
		StatusForeground: "#721c24",
		BannerColor:      "#dc3545",
		BannerText:       "#ffffff",
		Title:            "⚠️ Production Environment",
		Message:          "You are in a production environment. Proceed with extreme caution. Any changes made here will affect real users and data.",
		Alert:            true,
	},
	Staging: {
		Label:            "Staging",
		StatusBackground: "#fff3cd",
		StatusForeground: "#856404",
		BannerColor:      "#ffc107",
		BannerText:       "#212529",
		Title:            "⚠️ Staging Environment",
		Message:          "This is a staging environment. Changes here won't affect production, but be mindful of test data and configurations.",
	},
	Development: {
		Label:            "Development",
		StatusBackground: "#d4edda",
		StatusForeground: "#155724",
		BannerColor:      "#28a745",
		BannerText:       "#ffffff",
		Title:            "✓ Development Environment",
		Message:          "You are in a development environment. Safe to make changes.",
	},
	Test: {
		Label:            "Test",
		StatusBackground: "#cce5ff",
		StatusForeground: "#004085",
		BannerColor:      "#007bff",
		BannerText:       "#ffffff",
		Title:            "ℹ️ Test Environment",
		Message:          "This is a test/QA environment. Use this for testing changes before production.",
	},
}

var unknownStyle = Style{
	Label:            "Unknown",
	StatusBackground: "#f8f9fa",
	StatusForeground: "#383d41",
	BannerColor:      "#6c757d",
	BannerText:       "#ffffff",
	Title:            "Unknown Environment",
	Message:          "Environment not recognized. Check your pattern settings.",
}

// ErrorStyle is used when classification could not run at all.
var ErrorStyle = Style{
	Label:            "Error",
	StatusBackground: "#f8d7da",
	StatusForeground: "#721c24",
	BannerColor:      "#dc3545",
	BannerText:       "#ffffff",
	Title:            "⚠️ Error Detecting Environment",
	Alert:            true,
}

// StyleFor returns the style of env. Unrecognized and unknown labels get the
// "Unknown" style.
func StyleFor(env Environment) Style {
	if s, ok := styles[env]; ok {
		return s
	}
	return unknownStyle
}

// IconSizes are the pixel sizes an icon reference is provided in.
var IconSizes = []int{16, 32, 48, 128}

// Icon maps an environment to its toolbar image paths keyed by size.
// Environments without a dedicated image get the default icon.
func Icon(env Environment) map[int]string {
	base := "get_started"
	switch env {
	case Production:
		base = "icon_red"
	case Staging:
		base = "icon_yellow"
	case Development:
		base = "icon_green"
	}

	paths := make(map[int]string, len(IconSizes))
	for _, size := range IconSizes {
		paths[size] = fmt.Sprintf("images/%s%d.png", base, size)
	}
	return paths
}

// Upper returns the label in upper case as shown in the popup heading.
func (s Style) Upper() string {
	return strings.ToUpper(s.Label)
}
