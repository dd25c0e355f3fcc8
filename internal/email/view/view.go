package view

import (
	"fmt"
	"io"
	"io/fs"
	"text/template"

	"github.com/cleanyhq/cleany/internal/email"
)

// View is a parsed email template. Every template file must define both
// a subject and a body block.
type View struct {
	tmpl *template.Template
}

// Parse loads the template for the given name from fs. fs is expected to
// contain *.tmpl files in its root directory.
func Parse(fsys fs.FS, name string) (*View, error) {
	// View names end up in filenames. They are normally hardcoded, but
	// if user input ever reaches this point we refuse anything that
	// could traverse directories.
	if err := validateName(name); err != nil {
		return nil, err
	}

	tmpl, err := template.New(name).ParseFS(fsys, fmt.Sprintf("%s.tmpl", name))
	if err != nil {
		return nil, err
	}

	for _, element := range []email.TemplateElement{email.ElementSubject, email.ElementBody} {
		if tmpl.Lookup(string(element)) == nil {
			return nil, fmt.Errorf("template %s is missing a %s block", name, element)
		}
	}

	return &View{tmpl: tmpl}, nil
}

// Render writes the requested element of the view to w.
func (v *View) Render(w io.Writer, element email.TemplateElement, data any) error {
	return v.tmpl.ExecuteTemplate(w, string(element), data)
}

func validateName(name string) error {
	for _, r := range name {
		if !validViewRune(r) {
			return fmt.Errorf("invalid character %v in view name: %s", r, name)
		}
	}
	return nil
}

// validViewRune allows alphanumerics, dashes and underscores.
func validViewRune(r rune) bool {
	return r == '-' || r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
