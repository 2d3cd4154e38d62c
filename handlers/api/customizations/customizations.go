package customizations

import (
	"net/http"
	"product-customizer/core"
	"product-customizer/handlers/api"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackContentType is served for ?format=msgpack.
const MsgpackContentType = "application/msgpack"

// HandleList lists the customizations of an order, oldest first. The
// response is JSON unless ?format=msgpack is given.
func HandleList(store core.CustomizationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		if orderID == "" {
			api.RespondWithError(w, r, api.NewBadRequestError("Order id is required", nil))
			return
		}

		list, err := store.ListCustomizations(r.Context(), orderID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":    err,
				"order_id": orderID,
			}).Error("Failed to list customizations")
			api.RespondWithError(w, r, api.NewInternalError("Failed to list customizations", err))
			return
		}
		if list == nil {
			list = []*core.Customization{}
		}

		if r.URL.Query().Get("format") == "msgpack" {
			data, err := msgpack.Marshal(list)
			if err != nil {
				api.RespondWithError(w, r, api.NewInternalError("Failed to encode customizations", err))
				return
			}
			w.Header().Set("Content-Type", MsgpackContentType)
			w.Write(data)
			return
		}
		render.JSON(w, r, list)
	}
}

// HandleGetPreview serves preview images kept by the local stores under
// /previews/<key>.
func HandleGetPreview(store core.PreviewStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		if err := core.ValidatePreviewKey(key); err != nil {
			api.RespondWithError(w, r, api.NewNotFoundError("preview", key))
			return
		}

		data, err := store.FindPreview(r.Context(), key)
		if err != nil {
			api.RespondWithError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Write(data)
	}
}
