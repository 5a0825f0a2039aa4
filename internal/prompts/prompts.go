package prompts

import (
	"fmt"
	"strings"
)

// ============================================================================
// Image Rating Prompts
// ============================================================================

// AnalystSystemPrompt defines the role of the vision model.
const AnalystSystemPrompt = "You are an expert image analyst. Analyze the provided images based on the given criteria and return a detailed response."

// TruncationMarker ends a guideline excerpt that was cut to fit the prompt.
const TruncationMarker = "\n[... guidelines truncated ...]"

// TruncateGuidelines cuts text to at most maxChars runes, appending
// TruncationMarker when anything was dropped. maxChars <= 0 disables the cut.
func TruncateGuidelines(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return strings.TrimRight(string(runes[:maxChars]), " \n\t") + TruncationMarker
}

// BatchRatingPrompt builds the user prompt for one batch of images.
// Parameters:
//   - guidelines: extracted guideline text.
//   - filenames: exact filenames of the images attached to the request, in order.
//   - batchIndex: zero-based batch index.
//   - batchCount: total number of batches; 1 means the whole set is sent at once.
//   - maxGuidelineChars: excerpt limit applied to guidelines.
//
// Returns:
//   - string: prompt asking for one "filename: score - explanation" line per image.
func BatchRatingPrompt(guidelines string, filenames []string, batchIndex, batchCount, maxGuidelineChars int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert brand guidelines analyst. I will provide you with brand guidelines and %d images to analyze.\n", len(filenames))
	if batchCount > 1 {
		fmt.Fprintf(&b, "This is batch %d of %d. Rate only the images of this batch.\n", batchIndex+1, batchCount)
	}

	b.WriteString("\nBRAND GUIDELINES:\n")
	b.WriteString(TruncateGuidelines(guidelines, maxGuidelineChars))
	b.WriteString("\n\nIMAGES TO ANALYZE:\n")
	for i, name := range filenames {
		fmt.Fprintf(&b, "Image %d: %s\n", i+1, name)
	}

	b.WriteString(`
TASK:
Rate each image from 0 to 10 based on how well it complies with the brand guidelines:
- 0 = Completely inconsistent with guidelines
- 5 = Neutral/partially consistent
- 10 = Perfect compliance with guidelines

CRITICAL: Use the EXACT filenames I provided above. Provide your response in this EXACT format:

RATINGS:
`)
	for _, name := range filenames {
		fmt.Fprintf(&b, "%s: [score] - [explanation]\n", name)
	}
	fmt.Fprintf(&b, "\nRate ALL %d images using their EXACT filenames, not generic names.", len(filenames))

	return b.String()
}

// ============================================================================
// Inspiration Prompt
// ============================================================================

// InspirationPrompt asks the generator for count design reference websites.
func InspirationPrompt(keywords []string, count int) string {
	return fmt.Sprintf(`You are an international web design and marketing curator with a focus on global trends. Your task is to find %d world-class websites that are true references in design and marketing.
They MUST meet these criteria:
1. The list MUST include the best designs regardless of country or language, not only English-speaking ones.
2. They must be currently live and operational.
3. They must have been launched or significantly redesigned recently.
4. They must be recognized for innovative design, similar to winners on Awwwards, FWA or CSSDA.
5. Their aesthetic should reflect the following themes: '%s'.

---CRITICAL INSTRUCTIONS---
Your response MUST be a valid JSON array of objects. Each object must contain two keys: 'url' (the website URL) and 'description' (a concise, one-sentence explanation of why it is a great design reference based on the requested themes).
Example format: [{"url": "https://example.com", "description": "This site uses bold typography and a minimalist layout."}]`,
		count, strings.Join(keywords, ", "))
}
