package api

import (
	"fmt"
	"log/slog"

	"github.com/hazyhaar/formsync/pkg/kit"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers the browse tools on the server. They dispatch to
// the same endpoints as the HTTP routes.
func RegisterMCPTools(srv *server.MCPServer, b Browser, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	eps := newEndpoints(b, logger)

	kit.RegisterMCPTool(srv, mcp.NewTool("search_forms",
		mcp.WithDescription("Search imported forms by title (accent and case insensitive) or form id. An empty query lists every form."),
		mcp.WithString("query", mcp.Description("Part of the form title or id")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of forms (default 100)")),
	), eps.searchForms, func(args map[string]any) (any, error) {
		q, _ := args["query"].(string)
		return &searchReq{Query: q, Limit: intArg(args, "limit")}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("list_responses",
		mcp.WithDescription("List the responses of a form with their record count, email, chiffre and submission date, newest first."),
		mcp.WithString("form_id", mcp.Required(), mcp.Description("Form id")),
	), eps.listResponses, func(args map[string]any) (any, error) {
		id, err := stringArg(args, "form_id")
		if err != nil {
			return nil, err
		}
		return &formReq{FormID: id}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("get_response",
		mcp.WithDescription("Get every record of one response, ordered by question index."),
		mcp.WithString("response_id", mcp.Required(), mcp.Description("Response id")),
	), eps.getResponse, func(args map[string]any) (any, error) {
		id, err := stringArg(args, "response_id")
		if err != nil {
			return nil, err
		}
		return &responseReq{ResponseID: id}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("list_chiffres",
		mcp.WithDescription("Group stored responses by chiffre across forms, with the forms and emails seen for each."),
	), eps.listChiffres, func(map[string]any) (any, error) {
		return nil, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("search_records",
		mcp.WithDescription("Find responses whose form id, chiffre or email contains the query."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Form id, chiffre or email fragment")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of responses (default 100)")),
	), eps.searchRecords, func(args map[string]any) (any, error) {
		q, err := stringArg(args, "query")
		if err != nil {
			return nil, err
		}
		return &searchReq{Query: q, Limit: intArg(args, "limit")}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("value_frequencies",
		mcp.WithDescription("Count the distinct answers given to one field of a form, most frequent first."),
		mcp.WithString("form_id", mcp.Required(), mcp.Description("Form id")),
		mcp.WithString("field_id", mcp.Required(), mcp.Description("Field id")),
		mcp.WithString("exclude_response_id", mcp.Description("Response to leave out of the counts")),
	), eps.valueFrequencies, func(args map[string]any) (any, error) {
		form, err := stringArg(args, "form_id")
		if err != nil {
			return nil, err
		}
		field, err := stringArg(args, "field_id")
		if err != nil {
			return nil, err
		}
		exclude, _ := args["exclude_response_id"].(string)
		return &valuesReq{FormID: form, FieldID: field, ExcludeResponseID: exclude}, nil
	})
}

func stringArg(args map[string]any, key string) (string, error) {
	v, _ := args[key].(string)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// intArg accepts JSON numbers, which arrive as float64.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
