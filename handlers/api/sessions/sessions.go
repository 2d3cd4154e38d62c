package sessions

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"product-customizer/canvas"
	"product-customizer/handlers/api"
	"product-customizer/handlers/auth"
	"product-customizer/middleware"
	"product-customizer/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// MaxRequestBytes bounds JSON request bodies. Images are uploaded raw and
// have their own limit.
const MaxRequestBytes = 64 << 10

type (
	OpenRequest struct {
		OrderID string `json:"orderId"`
	}

	OpenResponse struct {
		SessionID    string        `json:"sessionId"`
		Token        string        `json:"token"`
		CustomerName string        `json:"customerName"`
		Stage        session.Stage `json:"stage"`
	}

	TemplateRequest struct {
		TemplateID string `json:"templateId"`
	}

	SelectRequest struct {
		ID string `json:"id"`
	}

	LayerRequest struct {
		Direction canvas.Direction `json:"direction"`
	}

	LayerResponse struct {
		Moved bool          `json:"moved"`
		State session.State `json:"state"`
	}
)

// Routes mounts the endpoints that act on the caller's session. All of them
// require a session token.
func Routes(m *session.Manager) func(r chi.Router) {
	return func(r chi.Router) {
		r.Use(middleware.AuthSession)
		r.Get("/", HandleState(m))
		r.Post("/start", HandleStart(m))
		r.Put("/template", HandleChooseTemplate(m))
		r.Delete("/template", HandleBack(m))
		r.Post("/items/text", HandleAddText(m))
		r.Post("/items/image", HandleAddImage(m))
		r.Put("/selection", HandleSelect(m))
		r.Patch("/selection", HandleUpdateSelected(m))
		r.Delete("/selection/item", HandleDeleteSelected(m))
		r.Post("/layer", HandleMoveLayer(m))
		r.Post("/commands", HandleCommand(m))
		r.Get("/render.png", HandleRender(m))
		r.Post("/finish", HandleFinish(m))
	}
}

// sessionHandler handles a request on the caller's session.
type sessionHandler func(w http.ResponseWriter, r *http.Request, s *session.Session)

// withSession resolves the session named by the request's token.
func withSession(m *session.Manager, h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Claims(r.Context())
		if !ok {
			api.RespondWithError(w, r, api.NewUnauthorizedError("Session claims not found"))
			return
		}
		s, err := m.Get(claims.Subject)
		if err != nil {
			api.RespondWithError(w, r, err)
			return
		}
		h(w, r, s)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return api.NewBadRequestError("Failed to parse request body", err)
	}
	return nil
}

// readBody reads a JSON request body of at most MaxRequestBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, api.NewRequestTooLargeError(MaxRequestBytes)
		}
		return nil, api.NewBadRequestError("Failed to read request body", err)
	}
	return body, nil
}

// respondState answers with the session state after a successful mutation.
func respondState(w http.ResponseWriter, r *http.Request, s *session.Session, err error) {
	if err != nil {
		api.RespondWithError(w, r, err)
		return
	}
	render.JSON(w, r, s.State())
}

func HandleOpen(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OpenRequest
		if r.ContentLength != 0 {
			if err := decode(w, r, &req); err != nil {
				api.RespondWithError(w, r, err)
				return
			}
		}

		s, err := m.Open(r.Context(), req.OrderID)
		if err != nil {
			api.RespondWithError(w, r, err)
			return
		}

		token, err := auth.CreateToken(s.ID(), s.OrderID())
		if err != nil {
			m.Close(s.ID())
			api.RespondWithError(w, r, api.NewInternalError("Failed to create session token", err))
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, OpenResponse{
			SessionID:    s.ID(),
			Token:        token,
			CustomerName: s.Greeting(),
			Stage:        s.State().Stage,
		})
	}
}

func HandleState(m *session.Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		render.JSON(w, r, s.State())
	})
}

func HandleStart(m *session.Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		respondState(w, r, s, s.Start())
	})
}

func HandleChooseTemplate(m *session.Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req TemplateRequest
		if err := decode(w, r, &req); err != nil {
			api.RespondWithError(w, r, err)
			return
		}
		_, err := s.ChooseTemplate(req.TemplateID)
		respondState(w, r, s, err)
	})
}

func HandleBack(m *session.Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		respondState(w, r, s, s.Back())
	})
}

func HandleAddText(m *session.Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		item, err := s.AddText()
		if err != nil {
			api.RespondWithError(w, r, err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, item)
	})
}

// HandleAddImage takes the raw image bytes as the request body.
func HandleAddImage(m *session.Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		defer r.Body.Close()
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, canvas.MaxImageBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				api.RespondWithError(w, r, session.ErrImageTooLarge)
				return
			}
			api.RespondWithError(w, r, api.NewBadRequestError("Failed to read request body", err))
			return
		}

		item, err := s.AddImage(raw)
		if err != nil {
			api.RespondWithError(w, r, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"session_id": s.ID(),
			"item_id":    item.ID,
			"bytes":      len(raw),
		}).Info("Image added successfully")
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, item)
	})
}

func HandleSelect(m *session.Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req SelectRequest
		if err := decode(w, r, &req); err != nil {
			api.RespondWithError(w, r, err)
			return
		}
		respondState(w, r, s, s.Select(req.ID))
	})
}

func HandleUpdateSelected(m *session.Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var patch canvas.Patch
		if err := decode(w, r, &patch); err != nil {
			api.RespondWithError(w, r, err)
			return
		}
		respondState(w, r, s, s.UpdateSelected(patch))
	})
}

func HandleDeleteSelected(m *session.Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		respondState(w, r, s, s.DeleteSelected())
	})
}

func HandleMoveLayer(m *session.Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req LayerRequest
		if err := decode(w, r, &req); err != nil {
			api.RespondWithError(w, r, err)
			return
		}
		if req.Direction == 0 {
			api.RespondWithError(w, r, api.NewBadRequestError("direction is required", nil))
			return
		}
		moved, err := s.MoveLayer(req.Direction)
		if err != nil {
			api.RespondWithError(w, r, err)
			return
		}
		render.JSON(w, r, LayerResponse{Moved: moved, State: s.State()})
	})
}

// HandleCommand applies one gesture command, see canvas.DecodeCommand.
func HandleCommand(m *session.Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		body, err := readBody(w, r)
		if err != nil {
			api.RespondWithError(w, r, err)
			return
		}
		cmd, err := canvas.DecodeCommand(body)
		if err != nil {
			api.RespondWithError(w, r, err)
			return
		}
		respondState(w, r, s, s.Dispatch(cmd))
	})
}

// HandleRender serves the current design at 1x with the selection overlay.
func HandleRender(m *session.Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		png, err := s.Render()
		if err != nil {
			api.RespondWithError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(png)
	})
}

func HandleFinish(m *session.Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		res, err := s.Finish(r.Context())
		if err != nil {
			api.RespondWithError(w, r, err)
			return
		}
		render.JSON(w, r, res)
	})
}
