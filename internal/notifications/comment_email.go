package notifications

import (
	"bytes"
	"html/template"

	"coreflow-cms/internal/comments"
)

const commentPendingTemplate = `<!DOCTYPE html>
<html>
<body>
  <h3>A comment is awaiting approval</h3>
  <p><strong>Case study:</strong> {{.Target.Title}}</p>
  <p><strong>Author:</strong> {{.Comment.AuthorName}}</p>
  <p><strong>Submitted:</strong> {{.Comment.CreatedAt.Format "2006-01-02 15:04 MST"}}</p>
  <p><strong>ID:</strong> {{.Comment.ID}}</p>
  <p>{{.Comment.Content}}</p>
  {{if .Link}}<p><a href="{{.Link}}">Open the case study</a></p>{{end}}
</body>
</html>`

var commentPendingTmpl = template.Must(template.New("comment_pending").Parse(commentPendingTemplate))

func buildCommentPendingHTML(comment comments.Comment, target comments.Target, siteURL string) (string, error) {
	data := struct {
		Comment comments.Comment
		Target  comments.Target
		Link    string
	}{
		Comment: comment,
		Target:  target,
	}
	if siteURL != "" {
		data.Link = siteURL + "/" + target.Slug + "/"
	}
	var buf bytes.Buffer
	if err := commentPendingTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
