package notificationsrv

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/Abraxas-365/relay-match/recruitment/notification"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

type newJobView struct {
	CandidateName string
	JobTitle      string
	Company       string
	Score         int
	MatchedSkills []string
	Growth        []string
	JobURL        string
	PixelURL      string
}

type summaryLine struct {
	JobTitle string
	Score    int
	URL      string
}

type newCandidateView struct {
	EmployerName  string
	CandidateName string
	Headline      string
	Matches       []summaryLine
	PixelURL      string
}

type digestLine struct {
	CandidateName string
	JobTitle      string
	Score         int
	URL           string
}

type digestView struct {
	EmployerName string
	Frequency    notification.Frequency
	MinScore     int
	Matches      []digestLine
	PixelURL     string
}

// render executes the named pair of templates, e.g. "digest" renders
// digest.html and digest.txt
func render(name string, view any) (html, text string, err error) {
	var h, t bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&h, name+".html", view); err != nil {
		return "", "", notification.ErrRenderFailed().WithDetail("template", name).WithCause(err)
	}
	if err := textTemplates.ExecuteTemplate(&t, name+".txt", view); err != nil {
		return "", "", notification.ErrRenderFailed().WithDetail("template", name).WithCause(err)
	}
	return h.String(), t.String(), nil
}
