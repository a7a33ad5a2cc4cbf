package checkout

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

// AssetsPrefix is where AssetsHandler is mounted.
const AssetsPrefix = "/assets/"

var (
	//go:embed assets/*
	assetFS embed.FS

	//go:embed templates/checkout.html
	pageFS embed.FS

	pageTmpl = template.Must(template.ParseFS(pageFS, "templates/checkout.html"))
)

type AssetKind string

const (
	AssetStyle  AssetKind = "style"
	AssetScript AssetKind = "script"
)

type Asset struct {
	Kind AssetKind
	URL  string
}

// Assets lists what the checkout page must load for the dialog to work.
func (h *Handler) Assets() []Asset {
	return []Asset{
		{Kind: AssetStyle, URL: AssetsPrefix + "order-notify.css"},
		{Kind: AssetScript, URL: AssetsPrefix + "order-notify.js"},
	}
}

// AssetsHandler serves the embedded stylesheet and script. Mount it at
// AssetsPrefix with the prefix stripped.
func AssetsHandler() http.Handler {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

type pageLine struct {
	ProductID int64
	Name      string
	Quantity  int
}

type pageData struct {
	LoggedIn bool
	Action   string
	Lines    []pageLine
	Styles   []string
	Scripts  []string
	Dialog   []ProductSummary
}

func (p *pageData) addAssets(list []Asset) {
	for _, a := range list {
		switch a.Kind {
		case AssetStyle:
			p.Styles = append(p.Styles, a.URL)
		case AssetScript:
			p.Scripts = append(p.Scripts, a.URL)
		}
	}
}

func renderPage(w http.ResponseWriter, data pageData) error {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(w)
	return err
}
