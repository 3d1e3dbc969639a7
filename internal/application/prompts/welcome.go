package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/updateme/engine/internal/core/domain/subscriber"
)

//go:embed templates/*.html
var templateFS embed.FS

var welcomeTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// WelcomeEmailData holds data for the welcome template
type WelcomeEmailData struct {
	Username string
	Date     string
}

// WelcomeEmail renders the HTML welcome message sent right after subscribing.
func WelcomeEmail(username string, lang subscriber.Language, now time.Time) (string, error) {
	lang = lang.Normalize()
	name := fmt.Sprintf("welcome_%s.html", lang)
	var buf bytes.Buffer
	err := welcomeTemplates.ExecuteTemplate(&buf, name, WelcomeEmailData{
		Username: username,
		Date:     FormatDate(now, lang),
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
