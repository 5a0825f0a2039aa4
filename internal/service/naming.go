package service

import (
	"fmt"
	"strings"
	"unicode"
)

const maxFilenameStem = 50

// CleanFilename turns an image description into a safe filename stem.
// Reserved characters become "_", the result is cut to 50 characters and
// trimmed, and an empty result becomes "untitled".
func CleanFilename(description string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, description)

	runes := []rune(cleaned)
	if len(runes) > maxFilenameStem {
		runes = runes[:maxFilenameStem]
	}
	cleaned = strings.TrimSpace(string(runes))
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}

// ImageFilename returns the stored name of the index-th (1-based) image.
func ImageFilename(index int, description string) string {
	return fmt.Sprintf("%03d_%s.jpg", index, CleanFilename(description))
}
