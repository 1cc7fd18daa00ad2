package render

import (
	"bytes"
	"html/template"
)

var fragmentTmpl = template.Must(template.New("fragment").Parse(`
<div class="hdr-status status-{{.Status.State}}">&#9679; {{.Status.Label}}</div>
<div class="stats">
 <span><strong>{{.Stats.Folders}}</strong> folders</span>
 <span><strong>{{.Stats.Files}}</strong> files</span>
 <span><strong>{{.Stats.Printed}}</strong> printed</span>
</div>
<div class="toasts">
{{if .LoginRequired}}<div class="toast toast-error">Session expired. Run "printdesk login" and restart.</div>{{end}}
{{range .Notices}}<div class="toast toast-{{.Level}}" data-notice="{{.ID}}">{{.Text}}</div>{{end}}
</div>
{{with .Empty}}
<div class="empty"><h3>{{.Title}}</h3><p>{{.Hint}}</p></div>
{{else}}
{{range .Folders}}
<div class="card folder" id="folder-{{.ID}}">
 <h2>{{.Name}} <span class="folder-info">{{.Summary}}</span></h2>
 <div class="files-grid">
 {{range .Cards}}
  <div class="p-card{{if .Processed}} printed{{end}}" id="file-{{.ID}}">
   <div class="p-info">
    <h4>{{.Name}}</h4>
    <p>{{.Size}} &bull; {{.Kind}} &bull; {{.Uploaded}}{{if .Age}} ({{.Age}}){{end}}</p>
    <span class="badge {{if .Processed}}badge-green{{else}}badge-yellow{{end}}">{{.Badge}}</span>
   </div>
   <div class="p-actions">
   {{range .Actions}}<button class="btn btn-sm btn-{{.Kind}}" data-action="{{.Kind}}" data-id="{{.FileID}}">{{.Label}}</button>{{end}}
   </div>
  </div>
 {{end}}
 </div>
</div>
{{end}}
{{end}}`))

// HTML renders v as an HTML fragment for the local web dashboard
func HTML(v View) ([]byte, error) {
	var buf bytes.Buffer
	if err := fragmentTmpl.Execute(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
