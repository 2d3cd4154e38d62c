package catalog

import (
	"net/http"
	"product-customizer/canvas"
	"product-customizer/templates"

	"github.com/go-chi/render"
)

// CatalogResponse lists what a customer can pick from before editing.
type CatalogResponse struct {
	Templates []templates.Template `json:"templates"`
	Fonts     []canvas.Font        `json:"fonts"`
	Palette   []string             `json:"palette"`
}

func HandleList(catalog *templates.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, CatalogResponse{
			Templates: catalog.All(),
			Fonts:     canvas.Fonts,
			Palette:   canvas.Palette,
		})
	}
}
