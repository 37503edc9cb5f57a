package infer

import (
	"strings"
	"text/template"

	"github.com/morikuni/failure/v2"
)

// DefaultPromptTemplate asks the model to return the article text verbatim,
// stripped of advertising and publisher branding.
const DefaultPromptTemplate = "Devolver o texto da notícia em primeiro lugar, mantendo todas as informações originais, " +
	"sem modificar nenhuma vírgula, pontuação ou característica do original. " +
	"Não fornecer resumo, análise ou interpretação alguma, também preste atenção na questão das propagandas, " +
	"para retirar propagandas e a marca, como VEJA, ABRIL, Olha Digital e por assim vai. " +
	"Segue texto com o artigo: {{.Article}}"

// Prompter renders the prompt for one article.
type Prompter struct {
	tmpl *template.Template
}

// NewPrompter parses text as a template with an {{.Article}} field. Empty
// text selects DefaultPromptTemplate.
func NewPrompter(text string) (*Prompter, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultPromptTemplate
	}
	t, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrPrompt),
			failure.Message("invalid prompt template"))
	}
	return &Prompter{tmpl: t}, nil
}

// Render fills the template with article.
func (p *Prompter) Render(article string) (string, error) {
	var b strings.Builder
	if err := p.tmpl.Execute(&b, struct{ Article string }{Article: article}); err != nil {
		return "", failure.Wrap(err, failure.WithCode(ErrPrompt),
			failure.Message("rendering prompt failed"))
	}
	return b.String(), nil
}
