package websocket

import (
	"product-customizer/session"
	"reflect"

	socketio "github.com/zishang520/socket.io/v2/socket"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// reply is the answer to one client event. It goes to the client's ack
// callback when there is one, and is emitted as event when event is set.
type reply struct {
	event   string
	payload map[string]any
	err     error
}

func failure(event string, err error) reply {
	return reply{event: event, payload: errorPayload(err), err: err}
}

func stateReply(event string, st session.State) reply {
	payload, err := statePayload(st)
	if err != nil {
		return failure("command-error", err)
	}
	return reply{event: event, payload: payload}
}

// ackFunc is the acknowledgement callback a client passed as the last
// argument of an event.
type ackFunc struct {
	fn reflect.Value
}

// splitAck separates a trailing ack callback from the event arguments.
func splitAck(args []any) (*ackFunc, []any) {
	if n := len(args); n > 0 {
		if fn := reflect.ValueOf(args[n-1]); fn.Kind() == reflect.Func && !fn.IsNil() {
			return &ackFunc{fn: fn}, args[:n-1]
		}
	}
	return nil, args
}

// send delivers r to the callback, if any, and emits it on the socket.
func (a *ackFunc) send(socket *socketio.Socket, r reply) {
	if a != nil {
		a.call(r)
	}
	if r.event != "" && r.payload != nil {
		_ = socket.Emit(r.event, r.payload)
	}
}

// call passes r to the callback. func(v) receives the error, or the payload
// when there is none. func(payload, error) receives them in that order. Any
// other shape receives the error first.
func (a *ackFunc) call(r reply) {
	t := a.fn.Type()
	var values []any
	switch {
	case t.NumIn() == 1 && r.err != nil:
		values = []any{r.err}
	case t.NumIn() == 1:
		values = []any{r.payload}
	case t.NumIn() == 2 && t.In(1) == errorType:
		values = []any{r.payload, r.err}
	default:
		values = []any{r.err, r.payload}
	}

	in := make([]reflect.Value, t.NumIn())
	for i := range in {
		var v any
		if i < len(values) {
			v = values[i]
		}
		in[i] = argValue(v, t.In(i))
	}
	if t.IsVariadic() {
		a.fn.CallSlice(in)
		return
	}
	a.fn.Call(in)
}

// argValue converts v for a parameter of type t. Errors are passed as their
// message unless t is an error type. Values that do not fit become the zero
// value.
func argValue(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	if err, ok := v.(error); ok && !t.Implements(errorType) {
		v = err.Error()
	}

	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(t):
		return rv
	case rv.Type().ConvertibleTo(t):
		return rv.Convert(t)
	case t.Kind() == reflect.Slice && rv.Type().AssignableTo(t.Elem()):
		s := reflect.MakeSlice(t, 1, 1)
		s.Index(0).Set(rv)
		return s
	case t.Kind() == reflect.Map && rv.Kind() == reflect.Map:
		return mapValue(rv, t)
	}
	return reflect.Zero(t)
}

// mapValue copies the entries of src that fit into a new map of type t.
func mapValue(src reflect.Value, t reflect.Type) reflect.Value {
	out := reflect.MakeMapWithSize(t, src.Len())
	iter := src.MapRange()
	for iter.Next() {
		k, v := iter.Key(), iter.Value()
		if v.Kind() == reflect.Interface {
			if v.IsNil() {
				continue
			}
			v = v.Elem()
		}
		if !k.Type().ConvertibleTo(t.Key()) {
			continue
		}
		switch {
		case v.Type().AssignableTo(t.Elem()):
		case v.Type().ConvertibleTo(t.Elem()):
			v = v.Convert(t.Elem())
		default:
			continue
		}
		out.SetMapIndex(k.Convert(t.Key()), v)
	}
	return out
}
