package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	log "github.com/go-pkgz/lgr"
)

const style = `
		<style type="text/css">
			body {
				font-family: "Arial";
				font-size: 1.0em;
			}
			ul {
				margin-top: -0.5em;
				margin-left: -0.5em;
			}
			pre {
				padding: 0.6em;
				font-size: 0.7em;
				background-color: #E8E2A0;
				font-family: "Menlo";
				overflow-x: auto;
				white-space: pre-wrap;
				word-wrap: break-word;
			}
			.bold {
				color: #882828;
				font-weight: 900;
			}
		</style>`

const defaultErrorTemplate = `<!DOCTYPE html>
<html>
	<head>
		<meta name="viewport" content="width=device-width" />
		<meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />` + style + `
	</head>
	<body>
		<p>Download failed on <span class="bold">{{.Host}}</span> at {{.TS.Format "2006-01-02T15:04:05Z07:00"}}</p>
		<ul>
			<li>Job: <span class="bold">{{.JobID}}</span></li>
		</ul>
		<pre>
{{.Error}}
		</pre>
	</body>
</html>
`

const defaultCompletionTemplate = `<!DOCTYPE html>
<html>
	<head>
		<meta name="viewport" content="width=device-width" />
		<meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />` + style + `
	</head>
	<body>
		<p>Download completed on <span class="bold">{{.Host}}</span> at {{.TS.Format "2006-01-02T15:04:05Z07:00"}}</p>
		<ul>
			<li>Job: <span class="bold">{{.JobID}}</span></li>
		</ul>
	</body>
</html>
`

type templateData struct {
	JobID string
	TS    time.Time
	Error string
	Host  string
}

// MakeErrorHTML renders failure message with custom template if set, default one otherwise
func (s *Service) MakeErrorHTML(jobID, errMsg string) (string, error) {
	return s.render(s.ErrorTemplate, defaultErrorTemplate, templateData{JobID: jobID, TS: s.now(), Error: errMsg, Host: s.Host})
}

// MakeCompletionHTML renders completion message with custom template if set, default one otherwise
func (s *Service) MakeCompletionHTML(jobID string) (string, error) {
	return s.render(s.CompletionTemplate, defaultCompletionTemplate, templateData{JobID: jobID, TS: s.now(), Host: s.Host})
}

// render executes template file, falls back to the default template if the file can't be parsed
func (s *Service) render(file, fallback string, data templateData) (string, error) {
	t, err := s.parse(file, fallback)
	if err != nil {
		return "", err
	}
	buf := bytes.Buffer{}
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to apply template: %w", err)
	}
	return buf.String(), nil
}

func (s *Service) parse(file, fallback string) (*template.Template, error) {
	if file != "" {
		t, err := template.ParseFiles(file)
		if err == nil {
			return t, nil
		}
		log.Printf("[WARN] can't parse template %s, using default, %v", file, err)
	}
	t, err := template.New("msg").Parse(fallback)
	if err != nil {
		return nil, fmt.Errorf("can't parse message template: %w", err)
	}
	return t, nil
}
