package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMath(t *testing.T) {
	text, found := extractMath(`Tính $x^2$ và $$\frac{1}{2}$$ nhé`)
	require.Len(t, found, 2)
	assert.Equal(t, formula{TeX: `\frac{1}{2}`, Display: true}, found[0])
	assert.Equal(t, formula{TeX: "x^2"}, found[1])
	assert.Equal(t, "Tính "+placeholder(1)+" và "+placeholder(0)+" nhé", text)
}

func TestExtractMathLeavesLoneDollars(t *testing.T) {
	for _, src := range []string{
		"giá 5$$ và",
		"một $ lẻ",
		"$x\n$",
		"$$",
	} {
		text, found := extractMath(src)
		assert.Empty(t, found, src)
		assert.Equal(t, src, text)
	}
}

func TestTeXToText(t *testing.T) {
	tests := map[string]string{
		`\frac{1}{2}`:      "1/2",
		`\frac{a+b}{c}`:    "(a+b)/c",
		`x^2 + y^2`:        "x² + y²",
		`x_1`:              "x₁",
		`\sqrt{x+1}`:       "√(x+1)",
		`90^\circ`:         "90°",
		`a \times b`:       "a × b",
		`\widehat{ABC}`:    "∠ABC",
		`\text{cm}^2`:      "cm²",
		`a \le b`:          "a ≤ b",
		`\left( x \right)`: "( x )",
		`2^{10}`:           "2¹⁰",
		`e^{x+y}`:          "e^(x+y)",
	}
	for in, want := range tests {
		assert.Equal(t, want, texToText(in), in)
	}
}

func TestTeXToHTML(t *testing.T) {
	assert.Equal(t, "<i>x</i><sup>2</sup>", texToHTML("x^2"))
	assert.Equal(t,
		`<span class="frac"><span class="num">1</span><span class="den">2</span></span>`,
		texToHTML(`\frac{1}{2}`))
	assert.Equal(t, "<i>a</i>&lt;<i>b</i>", texToHTML("a<b"))
	assert.Equal(t, `\unknown`, texToHTML(`\unknown`))
}

func TestReplaceMathWithText(t *testing.T) {
	assert.Equal(t, "Diện tích là a² cm", replaceMathWithText("Diện tích là $a^2$ cm"))
	assert.Equal(t, "không có công thức", replaceMathWithText("không có công thức"))
}

func TestDisplayMathInsideParagraph(t *testing.T) {
	r := NewHTMLRenderer()
	got := r.Fragment(`Ta có $$x^2$$ với x > 0`)
	assert.True(t, strings.HasPrefix(got, `<p>Ta có <span class="math-display"><i>x</i><sup>2</sup></span> với`), got)
	assert.NotContains(t, got, "<div")

	alone := r.Fragment(`$$x^2$$`)
	assert.Equal(t, `<span class="math-display"><i>x</i><sup>2</sup></span>`, alone)
}
