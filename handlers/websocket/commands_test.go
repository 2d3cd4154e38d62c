package websocket

import (
	"errors"
	"product-customizer/canvas"
	"product-customizer/geometry"
	"product-customizer/session"
	"reflect"
	"testing"

	socketio "github.com/zishang520/socket.io/v2/socket"
)

func TestAttachDetach(t *testing.T) {
	attachMutex.Lock()
	attachedSessions = make(map[socketio.SocketId]string)
	attachMutex.Unlock()

	attach("socket-1", "session-1")
	attach("socket-2", "session-1")

	if got, ok := attachedSession("socket-1"); !ok || got != "session-1" {
		t.Errorf("attachedSession(socket-1) = %q, %v", got, ok)
	}
	if AttachedCount() != 2 {
		t.Errorf("AttachedCount() = %d, want 2", AttachedCount())
	}

	detach("socket-1")
	if _, ok := attachedSession("socket-1"); ok {
		t.Error("socket-1 should be detached")
	}
	if AttachedCount() != 1 {
		t.Errorf("AttachedCount() = %d, want 1", AttachedCount())
	}
}

func TestDecodeCommandArg(t *testing.T) {
	want := canvas.DragCommand{ID: "a", Delta: geometry.Pt(3, 4)}

	testCases := []struct {
		name string
		arg  any
	}{
		{name: "string", arg: `{"type":"drag","id":"a","delta":{"x":3,"y":4}}`},
		{name: "bytes", arg: []byte(`{"type":"drag","id":"a","delta":{"x":3,"y":4}}`)},
		{name: "decoded object", arg: map[string]any{
			"type":  "drag",
			"id":    "a",
			"delta": map[string]any{"x": 3.0, "y": 4.0},
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeCommandArg([]any{tc.arg})
			if err != nil {
				t.Fatalf("decodeCommandArg() failed: %v", err)
			}
			if got != want {
				t.Errorf("decodeCommandArg() = %#v, want %#v", got, want)
			}
		})
	}

	if _, err := decodeCommandArg(nil); !errors.Is(err, canvas.ErrInvalidCommand) {
		t.Errorf("decodeCommandArg(nil) error = %v, want ErrInvalidCommand", err)
	}
	if _, err := decodeCommandArg([]any{`{"type":"warp"}`}); !errors.Is(err, canvas.ErrInvalidCommand) {
		t.Errorf("unknown type error = %v, want ErrInvalidCommand", err)
	}
}

func TestStatePayload(t *testing.T) {
	payload, err := statePayload(session.State{ID: "s-1", Stage: session.Editing, Export: session.Exporting})
	if err != nil {
		t.Fatalf("statePayload() failed: %v", err)
	}
	if payload["sessionId"] != "s-1" || payload["stage"] != "editing" || payload["export"] != "exporting" {
		t.Errorf("statePayload() = %v", payload)
	}
}

func TestErrorPayload(t *testing.T) {
	payload := errorPayload(session.ErrExportInProgress)
	if payload["status"] != "error" || payload["code"] != "EXPORT_IN_PROGRESS" {
		t.Errorf("errorPayload() = %v", payload)
	}
}

func TestSplitAck(t *testing.T) {
	var gotErr any
	var gotPayload map[string]any
	callback := func(err any, payload map[string]any) {
		gotErr, gotPayload = err, payload
	}

	ack, args := splitAck([]any{"token", callback})
	if ack == nil {
		t.Fatal("splitAck() did not find the callback")
	}
	if !reflect.DeepEqual(args, []any{"token"}) {
		t.Errorf("args = %v", args)
	}

	ack.call(reply{payload: map[string]any{"status": "ok"}})
	if gotErr != nil || gotPayload["status"] != "ok" {
		t.Errorf("ack delivered (%v, %v)", gotErr, gotPayload)
	}

	ack.call(failure("command-error", errors.New("boom")))
	if gotErr != "boom" {
		t.Errorf("ack error = %v, want boom", gotErr)
	}
	if gotPayload["status"] != "error" {
		t.Errorf("ack payload = %v, want an error payload", gotPayload)
	}

	if ack, args := splitAck([]any{"token"}); ack != nil || len(args) != 1 {
		t.Errorf("splitAck() without callback = %v, %v", ack != nil, args)
	}
	var nilFunc func()
	if ack, _ := splitAck([]any{nilFunc}); ack != nil {
		t.Error("splitAck() accepted a nil callback")
	}
}

func TestAckShapes(t *testing.T) {
	state := reply{payload: map[string]any{"stage": "editing"}}

	t.Run("payload first", func(t *testing.T) {
		var got []any
		var gotErr error
		ack, _ := splitAck([]any{func(args []any, err error) {
			got, gotErr = args, err
		}})
		ack.call(state)
		if gotErr != nil || len(got) != 1 {
			t.Fatalf("ack delivered (%v, %v)", got, gotErr)
		}
		if payload, ok := got[0].(map[string]any); !ok || payload["stage"] != "editing" {
			t.Errorf("payload = %v", got[0])
		}

		ack.call(failure("", session.ErrExportInProgress))
		if !errors.Is(gotErr, session.ErrExportInProgress) {
			t.Errorf("error = %v, want ErrExportInProgress", gotErr)
		}
	})

	t.Run("variadic", func(t *testing.T) {
		var got []any
		ack, _ := splitAck([]any{func(args ...any) {
			got = args
		}})
		ack.call(state)
		if len(got) != 1 {
			t.Fatalf("ack delivered %v", got)
		}
		if payload, ok := got[0].(map[string]any); !ok || payload["stage"] != "editing" {
			t.Errorf("payload = %v", got[0])
		}
	})

	t.Run("single string", func(t *testing.T) {
		var got string
		ack, _ := splitAck([]any{func(msg string) {
			got = msg
		}})
		ack.call(failure("", errNotAttached))
		if got != errNotAttached.Error() {
			t.Errorf("got %q, want %q", got, errNotAttached.Error())
		}
	})

	t.Run("typed map", func(t *testing.T) {
		var got map[string]string
		ack, _ := splitAck([]any{func(err error, payload map[string]string) {
			got = payload
		}})
		ack.call(reply{payload: map[string]any{"stage": "editing", "count": 2.5, "none": nil}})
		if !reflect.DeepEqual(got, map[string]string{"stage": "editing"}) {
			t.Errorf("payload = %v", got)
		}
	})
}

func TestSendWithoutAck(t *testing.T) {
	var ack *ackFunc
	ack.send(nil, reply{payload: map[string]any{"status": "ok"}})
}
