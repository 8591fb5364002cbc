package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	homeTemplate = mustParse("templates/layout.html", "templates/home.html")
	pageTemplate = mustParse("templates/layout.html", "templates/page.html")
)

func mustParse(files ...string) *template.Template {
	return template.Must(template.New("layout").Funcs(template.FuncMap{
		"tickURL": TickURL,
	}).ParseFS(templateFS, files...))
}

// TickURL is the URL an auto-refreshing page reloads to. It carries the current controls so
// the next cycle keeps them.
func TickURL(v View) string {
	q := url.Values{}
	q.Set("tick", "1")
	q.Set("interval", strconv.Itoa(v.Refresh.Seconds()))
	if v.Refresh.Enabled {
		q.Set("auto", "on")
	}
	return "/" + v.Page + "?" + q.Encode()
}

// Page writes the full HTML document for v.
func Page(w io.Writer, v View) error {
	return execute(w, pageTemplate, v)
}

// Home writes the landing page.
func Home(w io.Writer) error {
	return execute(w, homeTemplate, View{Title: "Home"})
}

// execute renders into a buffer first so a template error never leaves a half-written page.
func execute(w io.Writer, t *template.Template, v View) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return fmt.Errorf("render %s: %w", v.Page, err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
