package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// InviteData feeds templates/invite.html.
type InviteData struct {
	OrganizationName string
	InviteeEmail     string
	Position         string
	AcceptURL        string
	ExpiresAt        string
}

// Render executes the named embedded template, e.g. "invite".
func Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
