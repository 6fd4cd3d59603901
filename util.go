package main

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	"strings"
	"time"
)

// GenerateID returns a random hex string of the given byte length
func GenerateID(byteLen int) string {
	b := make([]byte, byteLen)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Distance returns the distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

// DistanceSq returns the squared distance between two points
func DistanceSq(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return dx*dx + dy*dy
}

// NormalizeVec clamps a direction vector to unit length. Components that are
// not finite are treated as zero; client floats cannot be trusted.
func NormalizeVec(x, y float64) (float64, float64) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		x = 0
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		y = 0
	}
	l := math.Sqrt(x*x + y*y)
	if l <= 1 {
		return x, y
	}
	return x / l, y / l
}

// roundi rounds a world coordinate to the nearest integer for snapshot payloads
func roundi(v float64) int {
	return int(math.Round(v))
}

// nowMillis returns the wall clock in milliseconds
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// SanitizeName trims whitespace, strips control characters and caps length
func SanitizeName(name string, maxLen int) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return truncRunes(b.String(), maxLen)
}

// SanitizeChat strips newlines and caps a chat line
func SanitizeChat(text string, maxLen int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.TrimSpace(truncRunes(text, maxLen))
}

// truncRunes caps a string at maxLen bytes without splitting a rune
func truncRunes(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := 0
	for i := range s {
		if i > maxLen {
			break
		}
		cut = i
	}
	return s[:cut]
}
