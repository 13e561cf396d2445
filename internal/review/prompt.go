package review

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-enry/go-enry/v2"

	"github.com/joescharf/crev/internal/models"
)

const systemPrompt = "You are an experienced technical lead performing a detailed code review."

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// language labels a file for the prompt, or returns "" when unknown.
func language(f models.FileRecord, sample string) string {
	return enry.GetLanguage(path.Base(f.Path), []byte(sample))
}

// BuildPrompt constructs the system and user prompts for reviewing files
// against criteria. Each file contributes at most maxChars characters.
func BuildPrompt(files []models.FileRecord, criteria models.ReviewCriteria, maxChars int) (system string, user string) {
	var b strings.Builder

	b.WriteString("You are performing a code review for a candidate's assignment.\n\n")
	b.WriteString("Assignment Details:\n")
	fmt.Fprintf(&b, "- Description: %s\n", criteria.Description)
	fmt.Fprintf(&b, "- Expected Level: %s\n\n", criteria.Level)

	b.WriteString("Repository Contents:\n")
	for _, f := range files {
		content := truncate(f.Content, maxChars)
		if lang := language(f, content); lang != "" {
			fmt.Fprintf(&b, "File: %s (%s)\n", f.Path, lang)
		} else {
			fmt.Fprintf(&b, "File: %s\n", f.Path)
		}
		fmt.Fprintf(&b, "```\n%s...\n```\n\n", content)
	}
	b.WriteString("\n")

	b.WriteString("Please provide a detailed technical analysis including:\n")
	b.WriteString("1. Code Quality Assessment:\n")
	b.WriteString("   - Code organization and structure\n")
	b.WriteString("   - Naming conventions and readability\n")
	b.WriteString("   - Error handling and edge cases\n")
	b.WriteString("   - Documentation and comments\n\n")
	b.WriteString("2. Technical Issues:\n")
	b.WriteString("   - Potential bugs or vulnerabilities\n")
	b.WriteString("   - Performance concerns\n")
	b.WriteString("   - Architecture problems\n")
	b.WriteString("   - Missing tests or validation\n\n")
	b.WriteString("3. Improvement Suggestions:\n")
	b.WriteString("   - Specific recommendations for better code quality\n")
	b.WriteString("   - Best practices that should be applied\n")
	b.WriteString("   - Additional features or enhancements\n\n")
	b.WriteString("4. Overall Rating:\n")
	b.WriteString("   - Score out of 10\n")
	b.WriteString("   - Brief justification for the score\n\n")

	b.WriteString("Please provide a code review analysis in the following JSON format:\n")
	b.WriteString("{\n")
	b.WriteString(`  "found_files": ["list of all analyzed files"],` + "\n")
	b.WriteString(`  "comments": ["detailed list of comments and suggestions about code quality, technical issues, and improvement suggestions"],` + "\n")
	b.WriteString(`  "rating": "score out of 10 with brief justification",` + "\n")
	b.WriteString(`  "conclusion": "detailed technical conclusion summarizing the review"` + "\n")
	b.WriteString("}\n\n")
	b.WriteString("Ensure the response is properly formatted JSON.")

	return systemPrompt, b.String()
}
