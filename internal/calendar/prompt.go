package calendar

import (
	"strings"
	"text/template"
)

var calendarPromptTmpl = template.Must(template.New("calendar").Parse(`
You are a content strategy assistant. Based on the following user inputs:
Topic: {{.Topic}}
Target Audience: {{.TargetAudience}}
Goals: {{.Goals}}
Duration: {{.Duration}}

Generate a content calendar for the specified duration.
For each calendar item, provide:
1.  "postDate": A suggested date (YYYY-MM-DD). Distribute posts reasonably over the duration.
2.  "postTime": A suggested time (HH:MM AM/PM).
3.  "platformSuggestion": Suggested platform (e.g., Instagram, Blog, Twitter, LinkedIn, TikTok).
4.  "contentTypeSuggestion": Type of content (e.g., "single image post", "3-slide carousel", "short reel concept", "story idea", "blog post outline", "tweet thread idea").
5.  "contentTheme": A brief theme or title for the post.
6.  "detailedPromptForContentGeneration": A detailed prompt that can be fed to an AI (like yourself) later to generate the actual content (image description, text, video script outline, etc.). This prompt should be specific enough to guide the AI.
7.  "callToAction": A suggested call to action for the post.

Return the response as a JSON array of objects, where each object represents a calendar item.
Example for one item:
{
  "postDate": "2025-06-01",
  "postTime": "10:00 AM",
  "platformSuggestion": "Instagram",
  "contentTypeSuggestion": "single image post",
  "contentTheme": "The Future of AI in Daily Life",
  "detailedPromptForContentGeneration": "Generate a vibrant, optimistic image depicting diverse people seamlessly interacting with helpful AI in everyday scenarios like homes, workplaces, and public spaces. The style should be slightly futuristic but relatable. Include a friendly robot assistant helping someone with groceries.",
  "callToAction": "What AI innovation are you most excited about? Share in the comments! #FutureOfAI"
}
`))

// BuildCalendarPrompt renders the planning prompt for b. Output depends only on
// the four brief fields.
func BuildCalendarPrompt(b Brief) string {
	var sb strings.Builder
	// The template has no failure paths for plain string fields.
	_ = calendarPromptTmpl.Execute(&sb, struct {
		Topic, TargetAudience, Goals, Duration string
	}{b.Topic, b.TargetAudience, b.Goals, b.Duration})
	return sb.String()
}
