// Package web embeds the server-rendered pages.
package web

import (
	"embed"
	"html/template"
	"strconv"

	"storefront/internal/models"
	"storefront/internal/session"
)

//go:embed templates/*.html
var files embed.FS

var funcs = template.FuncMap{
	"price": Price,
}

// Templates parses every page and partial; pages are addressed by file name.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(funcs).ParseFS(files, "templates/*.html"))
}

// Page is the data every template renders from. Fields a page does not use
// stay zero.
type Page struct {
	Title    string
	Identity *models.Identity
	Caps     models.Capabilities
	Flashes  []session.Flash
	// Live names the view the page subscribes to over /api/live.
	Live string

	// Form pages.
	Error     string
	Name      string
	Email     string
	Providers []string

	Products []models.Product
	Cart     models.Cart
}

func (p Page) Total() float64 { return p.Cart.Total() }

// Price formats an amount with two decimals.
func Price(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
