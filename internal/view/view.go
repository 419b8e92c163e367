// Package view はサーバーレンダリング用のHTMLテンプレートを提供する。
// テンプレートはバイナリにembedし、起動時に一度だけパースする。
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer はページ名からパース済みテンプレートを引いて描画する。
// 各ページはlayout.htmlと組み合わせてパースされる。
type Renderer struct {
	tmpl map[string]*template.Template
}

// New はembedされた全テンプレートをパースしてRendererを生成する。
func New() (*Renderer, error) {
	pages, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to glob templates: %w", err)
	}

	templates := map[string]*template.Template{}
	for _, page := range pages {
		name := strings.TrimSuffix(filepath.Base(page), ".html")
		if name == "layout" {
			continue
		}
		t, err := template.ParseFS(templatesFS, "templates/layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = t
	}

	return &Renderer{tmpl: templates}, nil
}

// Render は指定ページをレイアウト込みで描画する。
// dataはテンプレートにそのまま渡される。
func (r *Renderer) Render(w http.ResponseWriter, name string, data any) error {
	t, ok := r.tmpl[name]
	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return nil
}
