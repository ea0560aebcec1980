package mcp

import (
	"bufio"
	"io"
	"os"

	"akb/internal/analysis"
	"akb/internal/cache"
	"akb/internal/graphsync"
	"akb/internal/logging"
)

// ToolHandler handles one named command. A returned error becomes an
// isError response whose payload carries the error message.
type ToolHandler func(params map[string]interface{}) (interface{}, error)

// Server is the MCP command dispatcher: it maps named commands to handlers
// composed from the analysis memoizer, the extractors/transformer, and the
// graph sync bridge.
type Server struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	logger  *logging.Logger
	version string

	memo      *analysis.Memoizer
	cache     *cache.Reader
	bridge    *graphsync.Bridge
	syncScope string // default project scope for sync, "" means project id

	tools map[string]ToolHandler
}

// NewServer creates an MCP server over the given pipeline components.
// bridge may be built over empty capabilities; sync then degrades per its
// contract.
func NewServer(version string, memo *analysis.Memoizer, cacheReader *cache.Reader, bridge *graphsync.Bridge, logger *logging.Logger) *Server {
	s := &Server{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		logger:  logger,
		version: version,
		memo:    memo,
		cache:   cacheReader,
		bridge:  bridge,
	}
	s.registerTools()
	return s
}

// SetSyncScope sets the default project scope used by the sync command when
// the caller does not pass one. Empty means "use the project id".
func (s *Server) SetSyncScope(scope string) {
	s.syncScope = scope
}

// SetStdin sets the input stream (for testing)
func (s *Server) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil
}

// SetStdout sets the output stream (for testing)
func (s *Server) SetStdout(w io.Writer) {
	s.stdout = w
}

// Start starts the MCP server and begins processing messages
func (s *Server) Start() error {
	s.logger.Info("MCP server starting", map[string]interface{}{
		"version": s.version,
	})

	for {
		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("MCP server shutting down (EOF)", nil)
				return nil
			}
			s.logger.Error("Error reading message", map[string]interface{}{
				"error": err.Error(),
			})
			if msg != nil && msg.Id != nil {
				_ = s.writeError(msg.Id, ParseError, "Failed to parse message")
			}
			continue
		}

		response := s.handleMessage(msg)
		if response != nil {
			if err := s.writeMessage(response); err != nil {
				s.logger.Error("Error writing response", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}
