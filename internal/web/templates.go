package web

import "html/template"

// Cell values are rendered HTML produced by the formatter layer; the
// templates trust them and escape everything else.

const pageShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uikit@3.21.13/dist/css/uikit.min.css">
<script src="https://cdn.jsdelivr.net/npm/uikit@3.21.13/dist/js/uikit.min.js"></script>
</head>
<body>
<div class="uk-container uk-margin-top">
{{block "content" .}}{{end}}
</div>
</body>
</html>`

const indexContent = `{{define "content"}}
<h1 class="uk-heading-small">Data Tables</h1>
{{if not .Instances}}
<p class="uk-text-muted">No table instances defined yet.</p>
{{end}}
<ul class="uk-list uk-list-divider">
{{range .Instances}}
<li><a href="/tables/{{.Name}}">{{if .Title}}{{.Title}}{{else}}{{.Name}}{{end}}</a>
<span class="uk-text-meta">{{.SourceTemplate}}</span></li>
{{end}}
</ul>
{{end}}`

const tableContent = `{{define "content"}}
<h1 class="uk-heading-small">{{.Title}}</h1>
<p class="uk-text-meta">{{.Table.Total}} records</p>
<table class="uk-table uk-table-divider uk-table-striped uk-table-small">
<thead><tr>
{{range .Table.Header}}<th>{{.}}</th>{{end}}
</tr></thead>
<tbody>
{{range .Table.Rows}}<tr>
{{range .}}<td>{{html_cell .}}</td>{{end}}
</tr>{{end}}
</tbody>
</table>
{{if gt .Table.PageCount 1}}
<ul class="uk-pagination">
{{range .Pages}}
<li{{if .Current}} class="uk-active"{{end}}><a href="?page={{.Number}}">{{.Number}}</a></li>
{{end}}
</ul>
{{end}}
{{end}}`

var funcMap = template.FuncMap{
	"html_cell": func(s string) template.HTML { return template.HTML(s) },
}

var (
	indexTmpl = template.Must(template.New("index").Funcs(funcMap).Parse(pageShell + indexContent))
	tableTmpl = template.Must(template.New("table").Funcs(funcMap).Parse(pageShell + tableContent))
)
