package engine

import (
	"encoding/json"
	"net"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/TheDrone7/fhedb-sub001/internal/query"
)

// Handle implements the server.handler interface. One connection
// carries one query: either a registry-level query, or a contextual
// query addressed as "@<database> <query>".
func (e *Engine) Handle(conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Msg("error closing connection")
		}
	}()

	buf, err := e.readConn(conn)
	if err != nil {
		log.Error().Err(err).Msg("read error")
		return
	}

	response := e.respond(string(buf))
	if _, err := conn.Write(response); err != nil {
		log.Error().Err(err).Msg("error writing response")
	}
}

func (e *Engine) respond(input string) []byte {
	result, err := e.Execute(input)
	if err != nil {
		return []byte("ERROR: " + err.Error())
	}

	switch {
	case result.Documents != nil:
		b, err := json.Marshal(result.Documents)
		if err != nil {
			return []byte("ERROR: " + err.Error())
		}
		return b
	case result.Names != nil:
		b, err := json.Marshal(result.Names)
		if err != nil {
			return []byte("ERROR: " + err.Error())
		}
		return b
	}
	return []byte(result.Message)
}

// Execute parses and runs one textual command. A leading "@<database>"
// selects the database for a contextual query; without it the input is
// a registry-level query.
func (e *Engine) Execute(input string) (Result, error) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "@") {
		q, perr := query.ParseDatabaseQuery(trimmed)
		if perr != nil {
			return Result{}, perr
		}
		return e.ExecuteBase(q)
	}

	dbName, rest, _ := strings.Cut(trimmed[1:], " ")
	q, perr := query.ParseContextualQuery(rest)
	if perr != nil {
		return Result{}, perr
	}
	return e.ExecuteContextual(dbName, q)
}

// every connection that is incoming must be read, create a buffer to read the connection
func (e *Engine) readConn(conn net.Conn) ([]byte, error) {
	buf := make([]byte, e.maxBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
