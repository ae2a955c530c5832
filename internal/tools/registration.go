package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

// Registration pairs an MCP tool definition with its handler.
type Registration struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
}

// RegisterAll adds every registration to s and logs the tool names.
func RegisterAll(s *server.MCPServer, registrations []Registration, log logrus.FieldLogger) {
	for _, r := range registrations {
		s.AddTool(r.Tool, r.Handler)
		if log != nil {
			log.WithField("tool", r.Tool.Name).Debug("registered tool")
		}
	}
	if log != nil {
		log.WithField("count", len(registrations)).Info("tools registered")
	}
}

// Find returns the registration for name.
func Find(registrations []Registration, name string) (Registration, bool) {
	for _, r := range registrations {
		if r.Tool.Name == name {
			return r, true
		}
	}
	return Registration{}, false
}
