package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"product-customizer/canvas"
	"product-customizer/handlers/api"
	"product-customizer/handlers/auth"
	"product-customizer/session"
	"sync"

	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/engine.io/v2/utils"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

var errNotAttached = errors.New("socket is not attached to a session")

var (
	attachedSessions = make(map[socketio.SocketId]string)
	attachMutex      sync.RWMutex
)

func attach(id socketio.SocketId, sessionID string) {
	attachMutex.Lock()
	attachedSessions[id] = sessionID
	attachMutex.Unlock()
}

func detach(id socketio.SocketId) {
	attachMutex.Lock()
	delete(attachedSessions, id)
	attachMutex.Unlock()
}

func attachedSession(id socketio.SocketId) (string, bool) {
	attachMutex.RLock()
	defer attachMutex.RUnlock()
	sessionID, ok := attachedSessions[id]
	return sessionID, ok
}

// AttachedCount returns the number of sockets bound to a session.
func AttachedCount() int {
	attachMutex.RLock()
	defer attachMutex.RUnlock()
	return len(attachedSessions)
}

// SetupSocketIO serves the gesture channel. A client sends "attach" with its
// session token, then "command" messages in the canvas.DecodeCommand format.
// Every applied command is answered with a "state" event to all sockets of
// the session.
func SetupSocketIO(m *session.Manager) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(canvas.MaxImageBytes)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		me := socket.Id()

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("attach", func(datas ...any) {
			ack, args := splitAck(datas)
			s, err := resolveSession(m, args)
			if err != nil {
				ack.send(socket, failure("attach-ack", err))
				return
			}

			attach(me, s.ID())
			socket.Join(socketio.Room(s.ID()))
			utils.Log().Printf("Socket %v attached to session %v\n", me, s.ID())

			ack.send(socket, stateReply("state", s.State()))
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("command", func(datas ...any) {
			ack, args := splitAck(datas)
			sessionID, ok := attachedSession(me)
			if !ok {
				ack.send(socket, failure("command-error", errNotAttached))
				return
			}
			s, err := m.Get(sessionID)
			if err != nil {
				ack.send(socket, failure("command-error", err))
				return
			}

			cmd, err := decodeCommandArg(args)
			if err == nil {
				err = s.Dispatch(cmd)
			}
			if err != nil {
				ack.send(socket, failure("command-error", err))
				return
			}

			r := stateReply("", s.State())
			if r.err != nil {
				ack.send(socket, r)
				return
			}
			_ = srv.To(socketio.Room(sessionID)).Emit("state", r.payload)
			ack.send(socket, r)
		})

		socket.On("disconnect", func(datas ...any) {
			detach(me)
			socket.RemoveAllListeners("")
			socket.Disconnect(true)
		})
	})

	return srv
}

func resolveSession(m *session.Manager, args []any) (*session.Session, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("session token is required")
	}
	token, ok := args[0].(string)
	if !ok || token == "" {
		return nil, fmt.Errorf("invalid session token")
	}
	claims, err := auth.ParseToken(token)
	if err != nil {
		return nil, api.NewUnauthorizedError("Invalid token")
	}
	return m.Get(claims.Subject)
}

// decodeCommandArg accepts a command as a JSON string, raw bytes, or the
// object the socket.io parser already decoded.
func decodeCommandArg(args []any) (canvas.Command, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: command is required", canvas.ErrInvalidCommand)
	}
	var data []byte
	switch v := args[0].(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return nil, fmt.Errorf("%w: %v", canvas.ErrInvalidCommand, err)
		}
	}
	return canvas.DecodeCommand(data)
}

// statePayload converts a state snapshot into the generic map the socket.io
// encoder sends.
func statePayload(st session.State) (map[string]any, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func errorPayload(err error) map[string]any {
	return map[string]any{
		"status": "error",
		"code":   api.FromError(err).Code,
		"error":  err.Error(),
	}
}
