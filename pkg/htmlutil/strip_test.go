package htmlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain synopsis", "Two girls meet at the station.", "Two girls meet at the station."},
		{
			name:     "paragraphs become lines",
			input:    "<p>Volume one.</p><p>Volume two.</p>",
			expected: "Volume one.\nVolume two.",
		},
		{
			name:     "uppercase block tags",
			input:    "<DIV>Arc one</DIV><DIV>Arc two</DIV>",
			expected: "Arc one\nArc two",
		},
		{
			name:     "inline markup removed",
			input:    `<p style="font-weight: 600">A <strong>slow</strong> <em>burn</em> romance</p>`,
			expected: "A slow burn romance",
		},
		{
			name:     "br variants",
			input:    "Ch. 1<br>Ch. 2<br/>Ch. 3<br />Ch. 4",
			expected: "Ch. 1\nCh. 2\nCh. 3\nCh. 4",
		},
		{
			name:     "lists and headings",
			input:    "<h2>Notes</h2><ul><li>Raw scans</li><li>Fan translation</li></ul>",
			expected: "Notes\nRaw scans\nFan translation",
		},
		{"entities decoded", "Kiss &amp; White Lily &mdash; extras", "Kiss & White Lily — extras"},
		{"nbsp collapses", "Chapter&nbsp;&nbsp;12", "Chapter 12"},
		{"spaces collapse", "Bloom    Into    You", "Bloom Into You"},
		{"images dropped", "Cover <img src='cover.jpg'/> art", "Cover art"},
		{"script content dropped", "Chapter 1<script>alert('x')</script>", "Chapter 1"},
		{"bare ampersand and angle bracket kept", "Tom & Jerry: a < b", "Tom & Jerry: a < b"},
		{"blank lines removed", "<p>One</p><p>   </p><p>Two</p>", "One\nTwo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, StripTags(tt.input))
		})
	}
}

func TestDecodeHTMLEntities(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"Yagate Kimi ni Naru &lt;Bloom Into You&gt;", "Yagate Kimi ni Naru <Bloom Into You>"},
		{"&quot;Senpai&quot; it&#39;s &apos;fine&apos;", `"Senpai" it's 'fine'`},
		{"vol&ndash;ch and vol&#8212;ch", "vol–ch and vol—ch"},
		{"&copy; 2024 Studio&trade;", "© 2024 Studio™"},
		{"&#8220;quoted&#8221;", "“quoted”"},
		{"a&nbsp;b", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, decodeHTMLEntities(tt.input))
		})
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Bloom Into You", Sanitize("  <b>Bloom</b>\n Into   You "))
	assert.Equal(t, "Volume 1 Extras", Sanitize("<p>Volume 1</p><p>Extras</p>"))
	assert.Equal(t, "", Sanitize("<img src=x onerror=alert(1)>"))
	assert.Equal(t, []string{"Nakatani Nio", "Ito"}, SanitizeAll([]string{"Nakatani <i>Nio</i>", "<br>", "Ito"}))
	assert.Empty(t, SanitizeAll(nil))
}
