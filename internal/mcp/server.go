// Package mcp implements the Model Context Protocol server for troupe.
// Every tool is read-only: it loads the knowledge base, inspects it and never saves.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajitpratap0/troupe/internal/filter"
	"github.com/ajitpratap0/troupe/internal/metrics"
	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/roster"
	"github.com/ajitpratap0/troupe/internal/store"
	"github.com/ajitpratap0/troupe/internal/symmetry"
	"github.com/ajitpratap0/troupe/internal/verify"
)

// Server wraps an MCPServer with troupe dependencies.
type Server struct {
	mcp    *mcpserver.MCPServer
	st     store.Store
	policy models.CapacityPolicy
	logger *slog.Logger
}

// NewServer creates a new MCP server. If st is nil, tool calls return an error
// response instead of panicking.
func NewServer(st store.Store, policy models.CapacityPolicy, logger *slog.Logger) *Server {
	s := &Server{
		st:     st,
		policy: policy,
		logger: logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"troupe",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildVerifyTool(), s.handleVerify)
	mcpSrv.AddTool(buildSizesTool(), s.handleSizes)
	mcpSrv.AddTool(buildOneSidedTool(), s.handleOneSided)
	mcpSrv.AddTool(buildFilterTool(), s.handleFilter)
	mcpSrv.AddTool(buildGetEntityTool(), s.handleGetEntity)
	mcpSrv.AddTool(buildStatsTool(), s.handleStats)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleVerify is the exported handler for the "verify" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleVerify(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleVerify(ctx, req)
}

// HandleSizes is the exported handler for the "sizes" tool.
func (s *Server) HandleSizes(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSizes(ctx, req)
}

// HandleOneSided is the exported handler for the "one_sided_relations" tool.
func (s *Server) HandleOneSided(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleOneSided(ctx, req)
}

// HandleFilter is the exported handler for the "filter" tool.
func (s *Server) HandleFilter(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleFilter(ctx, req)
}

// HandleGetEntity is the exported handler for the "get_entity" tool.
func (s *Server) HandleGetEntity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleGetEntity(ctx, req)
}

// HandleStats is the exported handler for the "stats" tool.
func (s *Server) HandleStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleStats(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// load reads the roster, or returns the error result to send back.
func (s *Server) load(ctx context.Context) (*roster.Roster, *mcpgo.CallToolResult) {
	if s.st == nil {
		return nil, mcpgo.NewToolResultError("store is unavailable")
	}
	r, err := s.st.Load(ctx)
	if err != nil {
		s.logger.Error("mcp: loading knowledge base", "error", err)
		return nil, mcpgo.NewToolResultErrorf("loading knowledge base failed: %s", err.Error())
	}
	return r, nil
}

// --- tool definitions ---

func buildVerifyTool() mcpgo.Tool {
	return mcpgo.NewTool("verify",
		mcpgo.WithDescription("Report dangling unit memberships, dangling relation partners and units over capacity."),
	)
}

func buildSizesTool() mcpgo.Tool {
	return mcpgo.NewTool("sizes",
		mcpgo.WithDescription("List units holding more members than their rank allows."),
	)
}

func buildOneSidedTool() mcpgo.Tool {
	return mcpgo.NewTool("one_sided_relations",
		mcpgo.WithDescription("List relations A -> B where B exists but has no relation back to A."),
	)
}

func buildFilterTool() mcpgo.Tool {
	return mcpgo.NewTool("filter",
		mcpgo.WithDescription("Return the characters and units that pass a set of rules. "+
			`Rules: "include unit NAME", "exclude unit NAME", "character|unit rank >=|<= RANK", `+
			`"character|unit aspect TEXT", "character|unit tag TEXT", "character|unit where EXPRESSION".`),
		mcpgo.WithArray("rules",
			mcpgo.WithStringItems(),
			mcpgo.Description("Rules to apply; an empty list returns everything"),
		),
	)
}

func buildGetEntityTool() mcpgo.Tool {
	return mcpgo.NewTool("get_entity",
		mcpgo.WithDescription("Get one character or unit by name."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("Exact entity name"),
		),
		mcpgo.WithString("kind",
			mcpgo.Description("character or unit (default: characters first, then units)"),
		),
	)
}

func buildStatsTool() mcpgo.Tool {
	return mcpgo.NewTool("stats",
		mcpgo.WithDescription("Entity counts, history length and operation counters for this process."),
	)
}

// --- tool handlers ---

func (s *Server) handleVerify(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	r, errResult := s.load(ctx)
	if errResult != nil {
		return errResult, nil
	}
	rep := verify.Run(r, s.policy)
	return toolResultJSON(map[string]any{
		"clean":              rep.Clean(),
		"missing_units":      nonNil(rep.MissingUnits),
		"missing_characters": nonNil(rep.MissingCharacters),
		"oversized":          rep.Oversized,
	})
}

func (s *Server) handleSizes(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	r, errResult := s.load(ctx)
	if errResult != nil {
		return errResult, nil
	}
	violations := verify.Sizes(r.Characters, r.Units, s.policy)
	if violations == nil {
		violations = []verify.SizeViolation{}
	}
	return toolResultJSON(violations)
}

func (s *Server) handleOneSided(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	r, errResult := s.load(ctx)
	if errResult != nil {
		return errResult, nil
	}
	edges := symmetry.OneSided(r.Characters, r.Units)
	if edges == nil {
		edges = []symmetry.Edge{}
	}
	return toolResultJSON(edges)
}

func (s *Server) handleFilter(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	rules := req.GetStringSlice("rules", nil)
	for i := range rules {
		rules[i] = strings.TrimSpace(rules[i])
	}

	f, err := filter.Compile(rules)
	if err != nil {
		if errors.Is(err, filter.ErrUnknownRule) {
			return mcpgo.NewToolResultErrorf("%s", err.Error()), nil
		}
		return mcpgo.NewToolResultErrorf("invalid rule: %s", err.Error()), nil
	}

	r, errResult := s.load(ctx)
	if errResult != nil {
		return errResult, nil
	}
	chars, units, err := f.Apply(r.Characters, r.Units)
	if err != nil {
		return mcpgo.NewToolResultErrorf("filter failed: %s", err.Error()), nil
	}
	if chars == nil {
		chars = []models.Character{}
	}
	if units == nil {
		units = []models.Unit{}
	}
	return toolResultJSON(map[string]any{
		"characters": chars,
		"units":      units,
	})
}

func (s *Server) handleGetEntity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return mcpgo.NewToolResultError("name is required and must not be empty"), nil
	}
	kind := models.Kind(req.GetString("kind", ""))
	if kind != "" && !kind.IsValid() {
		return mcpgo.NewToolResultErrorf("invalid kind %q: must be character or unit", kind), nil
	}

	r, errResult := s.load(ctx)
	if errResult != nil {
		return errResult, nil
	}
	e, found, err := store.Get(r, kind, name)
	if errors.Is(err, store.ErrNotFound) {
		return mcpgo.NewToolResultErrorf("entity %q not found", name), nil
	}
	if err != nil {
		return mcpgo.NewToolResultErrorf("lookup failed: %s", err.Error()), nil
	}

	out := map[string]any{"kind": found, "entity": e}
	if found == models.KindUnit {
		var members []string
		for _, i := range r.MembersOf(name) {
			members = append(members, r.Characters[i].Name)
		}
		out["members"] = nonNil(members)
	}
	return toolResultJSON(out)
}

func (s *Server) handleStats(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	r, errResult := s.load(ctx)
	if errResult != nil {
		return errResult, nil
	}
	return toolResultJSON(map[string]any{
		"characters": len(r.Characters),
		"units":      len(r.Units),
		"history":    len(r.History),
		"counters":   metrics.Snapshot(),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
