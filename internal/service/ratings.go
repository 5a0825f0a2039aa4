package service

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/timmy/surrogates/internal/domain"
)

var (
	ratingLine     = regexp.MustCompile(`(?i)([^:]+\.(?:jpg|jpeg|png|gif|webp))\s*:\s*(\d+)(?:/10)?`)
	listMarkerHead = regexp.MustCompile(`^(?:[-•]\s*|\d+[.)]\s*)+`)
	markdownNoise  = strings.NewReplacer("*", "", "`", "")
)

// ParseRatings extracts per-image ratings from model output.
//
// Each line of the form "filename: score - explanation" whose filename was
// sent to the model yields one rating. Unknown filenames and scores above 10
// are dropped, and the first rating of a filename wins. Ratings are sorted by
// descending score, ties keeping their order of appearance. unrated lists the
// filenames of info that received no rating, in info order.
func ParseRatings(text string, info []domain.ImageInfo) (ratings []domain.Rating, unrated []string) {
	paths := make(map[string]string, len(info))
	for _, img := range info {
		paths[img.Filename] = img.Path
	}

	ratings = []domain.Rating{}
	seen := make(map[string]bool, len(info))
	for _, line := range strings.Split(text, "\n") {
		line = markdownNoise.Replace(line)
		m := ratingLine.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}

		filename := normalizeFilename(line[m[2]:m[3]])
		path, known := paths[filename]
		if !known || seen[filename] {
			continue
		}
		score, err := strconv.Atoi(line[m[4]:m[5]])
		if err != nil || score < 0 || score > domain.MaxScore {
			continue
		}

		explanation := ""
		if idx := strings.Index(line[m[1]:], " - "); idx >= 0 {
			explanation = strings.TrimSpace(line[m[1]+idx+3:])
		}

		seen[filename] = true
		ratings = append(ratings, domain.Rating{
			Filename:    filename,
			Score:       score,
			Explanation: explanation,
			Status:      domain.BucketForScore(score),
			Path:        path,
		})
	}

	sort.SliceStable(ratings, func(i, j int) bool {
		return ratings[i].Score > ratings[j].Score
	})

	for _, img := range info {
		if !seen[img.Filename] {
			unrated = append(unrated, img.Filename)
		}
	}
	return ratings, unrated
}

// normalizeFilename strips surrounding quotes and list markers that models
// tend to put around filenames.
func normalizeFilename(raw string) string {
	name := strings.TrimSpace(raw)
	name = listMarkerHead.ReplaceAllString(name, "")
	return strings.Trim(name, ` "'`)
}
