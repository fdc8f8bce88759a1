package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kweiss/sprintbot/internal/fault"
)

// Tool names exposed by the Atlassian MCP bridge.
const (
	toolCreateIssue     = "jira_create_issue"
	toolLinkIssues      = "jira_link_issues"
	toolSearchIssues    = "jira_search"
	toolTransitionIssue = "jira_transition_issue"
	toolCreateDocument  = "confluence_create_page"
	toolUpdateDocument  = "confluence_update_page"
)

// MCPClient implements Client over an MCP tool bridge, the same way
// the bot's tracker access has always been brokered: each operation is
// one tool call against the Atlassian bridge.
type MCPClient struct {
	inner      *client.Client
	projectKey string
}

// MCPConfig configures the MCP-backed tracker client.
type MCPConfig struct {
	// Endpoint is the streamable-HTTP URL of the MCP bridge.
	Endpoint string
	// ProjectKey is the project issues are created in.
	ProjectKey string
}

// NewMCPClient connects to the MCP bridge and performs the protocol
// handshake.
func NewMCPClient(ctx context.Context, cfg MCPConfig) (*MCPClient, error) {
	c, err := client.NewStreamableHttpClient(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("creating MCP client: %w", err)
	}

	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting MCP transport: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "sprintbot", Version: "1.0.0"}

	if _, err := c.Initialize(ctx, initReq); err != nil {
		return nil, fmt.Errorf("initializing MCP session: %w", err)
	}

	return &MCPClient{inner: c, projectKey: cfg.ProjectKey}, nil
}

// Close shuts down the underlying transport.
func (m *MCPClient) Close() error {
	return m.inner.Close()
}

// CreateIssue implements Client.
func (m *MCPClient) CreateIssue(ctx context.Context, kind IssueKind, fields map[string]any) (string, error) {
	args := map[string]any{
		"project_key": m.projectKey,
		"issue_type":  string(kind),
	}
	for k, v := range fields {
		args[k] = v
	}

	out, err := m.call(ctx, toolCreateIssue, args)
	if err != nil {
		return "", err
	}

	var resp struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil || resp.Key == "" {
		return "", fault.Errorf(fault.TransientNetwork, "create issue returned no key: %q", out)
	}
	return resp.Key, nil
}

// LinkIssues implements Client.
func (m *MCPClient) LinkIssues(ctx context.Context, childKey, parentKey string) error {
	_, err := m.call(ctx, toolLinkIssues, map[string]any{
		"child_key":  childKey,
		"parent_key": parentKey,
		"link_type":  "Epic-Story",
	})
	return err
}

// SearchIssues implements Client.
func (m *MCPClient) SearchIssues(ctx context.Context, query string) ([]Issue, error) {
	out, err := m.call(ctx, toolSearchIssues, map[string]any{
		"jql": query,
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Issues []Issue `json:"issues"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		return nil, fault.Errorf(fault.TransientNetwork, "search returned unparseable result: %v", err)
	}
	return resp.Issues, nil
}

// TransitionIssue implements Client.
func (m *MCPClient) TransitionIssue(ctx context.Context, key, targetState string) error {
	_, err := m.call(ctx, toolTransitionIssue, map[string]any{
		"issue_key": key,
		"status":    targetState,
	})
	return err
}

// CreateDocument implements Client.
func (m *MCPClient) CreateDocument(ctx context.Context, space, title, body string, labels []string) (string, error) {
	out, err := m.call(ctx, toolCreateDocument, map[string]any{
		"space_key": space,
		"title":     title,
		"content":   body,
		"labels":    labels,
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil || resp.ID == "" {
		return "", fault.Errorf(fault.TransientNetwork, "create page returned no id: %q", out)
	}
	return resp.ID, nil
}

// UpdateDocument implements Client.
func (m *MCPClient) UpdateDocument(ctx context.Context, id, body string) error {
	_, err := m.call(ctx, toolUpdateDocument, map[string]any{
		"page_id": id,
		"content": body,
	})
	return err
}

// call performs one tool call and returns the concatenated text
// content of the result.
func (m *MCPClient) call(ctx context.Context, tool string, args map[string]any) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args

	res, err := m.inner.CallTool(ctx, req)
	if err != nil {
		return "", classifyBridgeError(err.Error())
	}

	text := textContent(res)
	if res.IsError {
		return "", classifyBridgeError(text)
	}
	return text, nil
}

func textContent(res *mcp.CallToolResult) string {
	var b strings.Builder
	for _, content := range res.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// classifyBridgeError maps a bridge error message onto the fault
// taxonomy. The bridge surfaces the remote HTTP status in its error
// text, which is the only classification signal MCP carries.
func classifyBridgeError(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "403") ||
		strings.Contains(lower, "unauthorized") || strings.Contains(lower, "forbidden"):
		return fault.New(fault.Auth, msg)
	case strings.Contains(lower, "404") || strings.Contains(lower, "not found"):
		return fault.New(fault.NotFound, msg)
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "too many requests"):
		return fault.New(fault.RateLimited, msg)
	default:
		return fault.New(fault.TransientNetwork, msg)
	}
}
