package mcp

import (
	"encoding/json"
	"fmt"
	"sort"
)

// handleMessage routes a decoded message. Notifications produce no response.
func (s *Server) handleMessage(msg *Message) *Message {
	if msg.IsNotification() {
		s.logger.Debug("Ignoring notification", map[string]interface{}{
			"method": msg.Method,
		})
		return nil
	}
	if !msg.IsRequest() {
		return NewErrorMessage(msg.Id, InvalidRequest, "Message is neither a request nor a notification", nil)
	}

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "tools/list":
		return s.handleListTools(msg)
	case "tools/call":
		return s.handleCallTool(msg)
	case "ping":
		return NewResultMessage(msg.Id, map[string]interface{}{})
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method), nil)
	}
}

func (s *Server) handleInitialize(msg *Message) *Message {
	return NewResultMessage(msg.Id, map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    "akb",
			"version": s.version,
		},
	})
}

func (s *Server) handleListTools(msg *Message) *Message {
	return NewResultMessage(msg.Id, map[string]interface{}{
		"tools": s.GetToolDefinitions(),
	})
}

// callParams is the expected shape of tools/call params.
type callParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

func (s *Server) handleCallTool(msg *Message) *Message {
	raw, err := json.Marshal(msg.Params)
	if err != nil {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid tool call params", nil)
	}
	var call callParams
	if err := json.Unmarshal(raw, &call); err != nil || call.Name == "" {
		return NewErrorMessage(msg.Id, InvalidParams, "Tool call requires a tool name", nil)
	}
	return NewResultMessage(msg.Id, s.Dispatch(call.Name, call.Arguments))
}

// commandFault marks a handler panic that was recovered mid-command.
type commandFault struct {
	details string
}

func (f *commandFault) Error() string {
	return f.details
}

// Dispatch runs one named command and shapes its response. It is total:
// unknown commands, handler errors, and handler panics all come back as
// well-formed isError responses, never as transport failures.
func (s *Server) Dispatch(command string, params map[string]interface{}) map[string]interface{} {
	handler, ok := s.tools[command]
	if !ok {
		return s.toolResponse(map[string]interface{}{
			"error":     "Unknown command",
			"command":   command,
			"available": s.commandNames(),
		}, true)
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	payload, err := s.invoke(command, handler, params)
	if fault, isFault := err.(*commandFault); isFault {
		s.logger.Error("Command handler panicked", map[string]interface{}{
			"command": command,
			"details": fault.details,
		})
		return s.toolResponse(map[string]interface{}{
			"error":   "Failed to handle command",
			"command": command,
			"details": fault.details,
		}, true)
	}
	if err != nil {
		return s.toolResponse(map[string]interface{}{
			"error": err.Error(),
		}, true)
	}
	return s.toolResponse(payload, false)
}

// invoke calls the handler, converting panics into commandFault errors.
func (s *Server) invoke(command string, handler ToolHandler, params map[string]interface{}) (payload interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &commandFault{details: fmt.Sprintf("%v", r)}
		}
	}()
	return handler(params)
}

func (s *Server) commandNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// toolResponse wraps a payload in the MCP tool-result content shape.
func (s *Server) toolResponse(payload interface{}, isError bool) map[string]interface{} {
	text, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		text = []byte(fmt.Sprintf("%v", payload))
	}
	resp := map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": string(text)},
		},
	}
	if isError {
		resp["isError"] = true
	}
	return resp
}
