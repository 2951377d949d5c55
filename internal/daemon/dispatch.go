package daemon

import (
	"encoding/json"
	"fmt"
	"net"

	"go.rsi.dev/reverse-ssh-interface/internal/api"
	"go.rsi.dev/reverse-ssh-interface/internal/core"
)

// dispatch routes one decoded Request to the matching internal/api
// method and writes the Response(s). subscribe_events is the only
// streaming op; every other op writes exactly one Final response.
func (d *Daemon) dispatch(conn net.Conn, req Request) {
	switch req.Op {
	case "list_profiles":
		d.reply(conn, d.api.ListProfiles())

	case "get_profile":
		var args struct {
			Name string `json:"name"`
		}
		if !d.decodeArgs(conn, req, &args) {
			return
		}
		d.reply(conn, d.api.GetProfile(args.Name))

	case "create_profile":
		var args api.ProfileArg
		if !d.decodeArgs(conn, req, &args) {
			return
		}
		d.reply(conn, d.api.CreateProfile(args))

	case "delete_profile":
		var args struct {
			Name string `json:"name"`
		}
		if !d.decodeArgs(conn, req, &args) {
			return
		}
		err := d.api.DeleteProfile(args.Name)
		d.replySimple(conn, nil, err)

	case "start_session":
		var args struct {
			ProfileName string `json:"profile_name"`
		}
		if !d.decodeArgs(conn, req, &args) {
			return
		}
		d.reply(conn, d.api.StartSession(args.ProfileName))

	case "stop_session":
		var args struct {
			ID string `json:"id"`
		}
		if !d.decodeArgs(conn, req, &args) {
			return
		}
		d.replySimple(conn, nil, d.api.StopSession(args.ID))

	case "stop_all":
		count := d.api.StopAllSessions()
		d.replySimple(conn, map[string]int{"count": count}, nil)

	case "list_sessions", "status":
		d.replySimple(conn, d.api.ListSessions(), nil)

	case "get_session":
		var args struct {
			ID string `json:"id"`
		}
		if !d.decodeArgs(conn, req, &args) {
			return
		}
		d.reply(conn, d.api.GetSession(args.ID))

	case "query_history":
		var args struct {
			ProfileName string `json:"profile_name"`
			Limit       int    `json:"limit"`
		}
		if !d.decodeArgs(conn, req, &args) {
			return
		}
		if args.Limit <= 0 {
			args.Limit = 100
		}
		d.reply(conn, d.api.QueryHistory(args.ProfileName, args.Limit))

	case "subscribe_events":
		d.streamEvents(conn)

	case "askpass":
		var args struct {
			Token string `json:"token"`
		}
		if !d.decodeArgs(conn, req, &args) {
			return
		}
		pw, err := d.sup.ResolveAskpassPassword(args.Token, d.resolveAskpassLookup)
		d.replySimple(conn, map[string]string{"password": pw}, err)

	case "version":
		d.replySimple(conn, map[string]string{"version": core.Version}, nil)

	default:
		writeResponse(conn, Response{OK: false, Error: fmt.Sprintf("unknown op %q", req.Op), Final: true})
	}
}

func (d *Daemon) decodeArgs(conn net.Conn, req Request, dst any) bool {
	if len(req.Args) == 0 {
		writeResponse(conn, Response{OK: false, Error: "missing args", Final: true})
		return false
	}
	if err := json.Unmarshal(req.Args, dst); err != nil {
		writeResponse(conn, Response{OK: false, Error: "invalid args: " + err.Error(), Final: true})
		return false
	}
	return true
}

// reply marshals a (value, error) pair as returned by most api.API
// methods into a single terminal Response.
func (d *Daemon) reply(conn net.Conn, value any, err error) {
	d.replySimple(conn, value, err)
}

func (d *Daemon) replySimple(conn net.Conn, value any, err error) {
	if err != nil {
		writeResponse(conn, Response{OK: false, Error: err.Error(), Final: true})
		return
	}
	var data json.RawMessage
	if value != nil {
		encoded, mErr := json.Marshal(value)
		if mErr != nil {
			writeResponse(conn, Response{OK: false, Error: mErr.Error(), Final: true})
			return
		}
		data = encoded
	}
	writeResponse(conn, Response{OK: true, Data: data, Final: true})
}

// streamEvents writes one Response per event until the client closes
// its connection.
func (d *Daemon) streamEvents(conn net.Conn) {
	events, cancel := d.api.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 1)
		conn.Read(buf) // block until the client closes or sends anything
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			line, err := json.Marshal(Response{OK: true, Data: data})
			if err != nil {
				continue
			}
			if _, err := conn.Write(append(line, '\n')); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
