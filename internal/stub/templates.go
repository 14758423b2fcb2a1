package stub

import (
	"strings"

	"github.com/frameless-media/datatables/internal/column"
	"github.com/frameless-media/datatables/internal/fieldtype"
)

// stubHeader is prepended to every generated stub. The provenance lines are
// for human auditability only; nothing parses them.
const stubHeader = `# Output stub for column: {{LABEL}}
# Source: {{FIELDNAME}} (type: {{TYPE}})
# Contract: format(value, settings) -> string
# This file is yours to edit. It is generated once and never overwritten.

`

// genericBody is the escape-and-stringify fallback used when a type has no
// specific default.
const genericBody = `def format(value, settings):
    if value == None:
        return ""
    return html_escape(str(value))
`

// defaultBodies holds the built-in default stub per formatter type.
var defaultBodies = map[fieldtype.Type]string{
	fieldtype.TypeID: `def format(value, settings):
    if value == None:
        return ""
    return str(int(value))
`,

	fieldtype.TypeName: genericBody,

	fieldtype.TypeCreated: `def format(value, settings):
    if not value:
        return ""
    return format_date(value, settings.get("dateFormat", "2006-01-02 15:04"))
`,

	fieldtype.TypeModified: `def format(value, settings):
    if not value:
        return ""
    return format_date(value, settings.get("dateFormat", "2006-01-02 15:04"))
`,

	fieldtype.TypeParent: `def format(value, settings):
    if not value:
        return ""
    return anchor(value["url"], value["title"])
`,

	fieldtype.TypeURL: `def format(value, settings):
    if not value:
        return ""
    return anchor(str(value), str(value))
`,

	fieldtype.TypeStatus: `def format(value, settings):
    if value == None:
        return ""
    labels = status_labels(value)
    if not labels:
        return ""
    return ", ".join(labels)
`,

	fieldtype.TypeMetadata: `def format(value, settings):
    pre = "<pre style=\"white-space:pre-wrap;font-size:0.9em;margin:0\">"
    return pre + html_escape(json_pretty(value)) + "</pre>"
`,

	fieldtype.TypeText: `def format(value, settings):
    if value == None:
        return ""
    return html_escape(truncate(str(value), settings.get("textMaxLength", 80)))
`,

	fieldtype.TypeTextarea: `def format(value, settings):
    if value == None:
        return ""
    text = str(value)
    if settings.get("textareaStripTags"):
        text = strip_tags(text)
    return html_escape(truncate(text, settings.get("textareaMaxLength", 120)))
`,

	fieldtype.TypeInteger: `def format(value, settings):
    if value == None:
        return ""
    spec = settings.get("currencyFormat", "")
    if spec:
        return format_currency(value, spec)
    return format_number(value, settings.get("numberDecimals", 0))
`,

	fieldtype.TypeFloat: `def format(value, settings):
    if value == None:
        return ""
    spec = settings.get("currencyFormat", "")
    if spec:
        return format_currency(value, spec)
    return format_number(value, settings.get("numberDecimals", 0))
`,

	fieldtype.TypeCheckbox: `def format(value, settings):
    if value:
        return settings.get("checkboxYesLabel", "Yes")
    return settings.get("checkboxNoLabel", "No")
`,

	fieldtype.TypeOptions: `def format(value, settings):
    if not value:
        return ""
    labels = {}
    for line in settings.get("optionLabelMap", "").splitlines():
        if "=" in line:
            k, v = line.split("=", 1)
            labels[k.strip()] = v.strip()
    items = value if type(value) == "list" else [value]
    out = []
    for item in items:
        key = str(item)
        out.append(html_escape(labels.get(key, key)))
    return ", ".join(out)
`,

	fieldtype.TypePageRef: `def format(value, settings):
    if not value:
        return ""
    sep = settings.get("pageRefSeparator", ", ")
    refs = value if type(value) == "list" else [value]
    return sep.join([anchor(r["url"], r["title"]) for r in refs])
`,

	fieldtype.TypeFile: `def format(value, settings):
    if not value:
        return ""
    files = value if type(value) == "list" else [value]
    return " ".join([anchor(f["url"], f["name"]) for f in files])
`,

	fieldtype.TypeImage: `def format(value, settings):
    if not value:
        return ""
    width = settings.get("imageThumbnailMaxWidth", 120)
    files = value if type(value) == "list" else [value]
    out = []
    for f in files:
        if f.get("width"):
            img = "<img src=\"" + f["url"] + "\" style=\"max-width:" + str(width) + "px\">"
            out.append("<a href=\"" + f["url"] + "\">" + img + "</a>")
        else:
            out.append(anchor(f["url"], f["name"]))
    return " ".join(out)
`,

	fieldtype.TypeDatetime: `def format(value, settings):
    if not value:
        return ""
    return format_date(value, settings.get("dateFormat", "2006-01-02 15:04"))
`,

	fieldtype.TypeEmail: `def format(value, settings):
    if not value:
        return ""
    addr = html_escape(str(value))
    return "<a href=\"mailto:" + addr + "\">" + addr + "</a>"
`,

	fieldtype.TypeExternalURL: `def format(value, settings):
    if not value:
        return ""
    return anchor(str(value), str(value), "_blank")
`,

	fieldtype.TypeRepeater: `def format(value, settings):
    if not value:
        return "0"
    rows = value if type(value) == "list" else [value]
    modal_id = "modal_" + uid()
    headers = []
    if type(rows[0]) == "dict":
        headers = sorted(rows[0].keys())
    out = "<a href=\"#" + modal_id + "\" uk-toggle>" + str(len(rows)) + "</a>"
    table = "<table class=\"uk-table uk-table-divider uk-table-small\"><thead><tr>"
    for h in headers:
        table += "<th>" + html_escape(h) + "</th>"
    table += "</tr></thead><tbody>"
    for row in rows:
        table += "<tr>"
        for h in headers:
            table += "<td>" + html_escape(str(row.get(h, ""))) + "</td>"
        table += "</tr>"
    table += "</tbody></table>"
    out += "<div id=\"" + modal_id + "\" uk-modal>"
    out += "<div class=\"uk-modal-dialog uk-modal-body\">"
    out += "<button class=\"uk-modal-close-default\" type=\"button\" uk-close></button>"
    out += "<h3 class=\"uk-modal-title\">Details (" + str(len(rows)) + ")</h3>"
    out += table
    out += "</div></div>"
    return out
`,

	fieldtype.TypeGeneric: genericBody,
}

// Render produces the full stub content for a formatter type and column
// definition. Types without a specific default fall back to the generic
// escape-and-stringify body.
func Render(typ fieldtype.Type, def column.Definition) string {
	body, ok := defaultBodies[typ]
	if !ok {
		body = genericBody
	}
	content := stubHeader + body
	content = strings.ReplaceAll(content, "{{LABEL}}", def.Label)
	content = strings.ReplaceAll(content, "{{FIELDNAME}}", def.SourceName)
	content = strings.ReplaceAll(content, "{{TYPE}}", string(typ))
	return content
}
