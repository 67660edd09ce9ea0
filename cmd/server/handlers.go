package main

import (
	"fmt"

	"github.com/adamwolf/humming/internal/timing"
	"github.com/adamwolf/humming/pkg/kv"
	"github.com/tidwall/redcon"
)

func (app *App) ping(conn redcon.Conn, cmd redcon.Command) {
	conn.WriteString("PONG")
}

func (app *App) quit(conn redcon.Conn, cmd redcon.Command) {
	conn.WriteString("OK")
	conn.Close()
}

// set inserts a single key/value pair as a new one-record bucket file.
// The engine has no in-place update: a later GET fans out across every
// file and returns the oldest matching value first, so repeated SETs for
// the same key accumulate rather than overwrite.
func (app *App) set(conn redcon.Conn, cmd redcon.Command) {
	if len(cmd.Args) != 3 {
		conn.WriteError("ERR wrong number of arguments for '" + string(cmd.Args[0]) + "' command")
		return
	}

	t := timing.Start(app.lo, "insert")
	defer t.Stop()

	key := string(cmd.Args[1])
	val := append([]byte(nil), cmd.Args[2]...)
	if err := app.bkt.Insert(kv.Batch{kv.New(key, val)}); err != nil {
		conn.WriteError(fmt.Sprintf("ERR %s", err))
		return
	}

	conn.WriteString("OK")
}

// get returns the first value found for key across every bucket file in
// insertion order, or a null bulk reply if none match.
func (app *App) get(conn redcon.Conn, cmd redcon.Command) {
	if len(cmd.Args) != 2 {
		conn.WriteError("ERR wrong number of arguments for '" + string(cmd.Args[0]) + "' command")
		return
	}

	t := timing.Start(app.lo, "read")
	defer t.Stop()

	key := string(cmd.Args[1])
	vals, err := app.bkt.Read(key)
	if err != nil {
		conn.WriteError(fmt.Sprintf("ERR %s", err))
		return
	}
	if len(vals) == 0 {
		conn.WriteNull()
		return
	}

	conn.WriteBulk(vals[0])
}
