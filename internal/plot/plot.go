// Package plot renders simple charts to SVG payloads. Candidate programs
// reach it through the sandbox's charts package; the rest of the system only
// passes the rendered images through.
package plot

import (
	"fmt"
	"math"
	"strings"
)

// Image is one rendered chart payload.
type Image struct {
	MIME  string
	Title string
	Data  []byte
}

const (
	width      = 640
	height     = 400
	marginLeft = 60
	marginTop  = 40
	marginBot  = 50
)

// Line renders a line chart of ys over xs.
func Line(title string, xs, ys []float64) Image {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}

	var b strings.Builder
	header(&b, title)
	if n > 0 {
		xMin, xMax := bounds(xs[:n])
		yMin, yMax := bounds(ys[:n])
		var points []string
		for i := 0; i < n; i++ {
			if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
				continue
			}
			px := scaleX(xs[i], xMin, xMax)
			py := scaleY(ys[i], yMin, yMax)
			points = append(points, fmt.Sprintf("%.1f,%.1f", px, py))
		}
		fmt.Fprintf(&b, `<polyline fill="none" stroke="#2563eb" stroke-width="2" points="%s"/>`,
			strings.Join(points, " "))
		for _, p := range points {
			xy := strings.SplitN(p, ",", 2)
			fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="3" fill="#2563eb"/>`, xy[0], xy[1])
		}
		axisLabels(&b, yMin, yMax)
	}
	b.WriteString("</svg>")

	return Image{MIME: "image/svg+xml", Title: title, Data: []byte(b.String())}
}

// Bar renders a bar chart of values by label.
func Bar(title string, labels []string, values []float64) Image {
	n := len(labels)
	if len(values) < n {
		n = len(values)
	}

	var b strings.Builder
	header(&b, title)
	if n > 0 {
		_, vMax := bounds(values[:n])
		if vMax <= 0 {
			vMax = 1
		}
		plotW := float64(width - marginLeft - 20)
		slot := plotW / float64(n)
		barW := slot * 0.7
		for i := 0; i < n; i++ {
			v := values[i]
			if v < 0 || math.IsNaN(v) {
				v = 0
			}
			barH := (v / vMax) * float64(height-marginTop-marginBot)
			x := float64(marginLeft) + float64(i)*slot + (slot-barW)/2
			y := float64(height-marginBot) - barH
			fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="#2563eb"/>`,
				x, y, barW, barH)
			fmt.Fprintf(&b, `<text x="%.1f" y="%d" font-size="11" text-anchor="middle">%s</text>`,
				x+barW/2, height-marginBot+16, escape(labels[i]))
		}
		axisLabels(&b, 0, vMax)
	}
	b.WriteString("</svg>")

	return Image{MIME: "image/svg+xml", Title: title, Data: []byte(b.String())}
}

func header(b *strings.Builder, title string) {
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		width, height, width, height)
	fmt.Fprintf(b, `<rect width="%d" height="%d" fill="white"/>`, width, height)
	fmt.Fprintf(b, `<text x="%d" y="24" font-size="16" font-weight="bold">%s</text>`,
		marginLeft, escape(title))
	// Axes
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#9ca3af"/>`,
		marginLeft, marginTop, marginLeft, height-marginBot)
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#9ca3af"/>`,
		marginLeft, height-marginBot, width-20, height-marginBot)
}

func axisLabels(b *strings.Builder, yMin, yMax float64) {
	fmt.Fprintf(b, `<text x="%d" y="%d" font-size="11" text-anchor="end">%s</text>`,
		marginLeft-6, marginTop+4, formatTick(yMax))
	fmt.Fprintf(b, `<text x="%d" y="%d" font-size="11" text-anchor="end">%s</text>`,
		marginLeft-6, height-marginBot, formatTick(yMin))
}

// bounds ignores NaN values; with no finite value it falls back to [0, 1].
func bounds(vs []float64) (float64, float64) {
	min, max := math.NaN(), math.NaN()
	for _, v := range vs {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(min) || v < min {
			min = v
		}
		if math.IsNaN(max) || v > max {
			max = v
		}
	}
	if math.IsNaN(min) {
		return 0, 1
	}
	return min, max
}

func scaleX(v, min, max float64) float64 {
	if max == min {
		return float64(marginLeft) + float64(width-marginLeft-20)/2
	}
	return float64(marginLeft) + (v-min)/(max-min)*float64(width-marginLeft-20)
}

func scaleY(v, min, max float64) float64 {
	if max == min {
		return float64(height-marginBot) - float64(height-marginTop-marginBot)/2
	}
	return float64(height-marginBot) - (v-min)/(max-min)*float64(height-marginTop-marginBot)
}

func formatTick(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
