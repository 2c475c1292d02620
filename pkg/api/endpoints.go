package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/formsync/pkg/flatten"
	"github.com/hazyhaar/formsync/pkg/kit"
	"github.com/hazyhaar/formsync/pkg/store"
)

// Browser is the read side of the store.
type Browser interface {
	SearchForms(ctx context.Context, q string, limit int) ([]flatten.FormSummary, error)
	ResponseSummaries(ctx context.Context, formID string) ([]store.ResponseSummary, error)
	ResponseRecords(ctx context.Context, responseID string) ([]flatten.Record, error)
	ChiffreGroups(ctx context.Context) ([]store.ChiffreGroup, error)
	SearchRecords(ctx context.Context, q string, limit int) ([]store.ResponseSummary, error)
	ValueFrequencies(ctx context.Context, formID, fieldID, excludeResponseID string) ([]store.ValueCount, error)
	ListImports(ctx context.Context) ([]store.ImportRun, error)
}

// Shared request/response types used by both HTTP and MCP transports.

type searchReq struct {
	Query string
	Limit int
}

type formReq struct {
	FormID string
}

type responseReq struct {
	ResponseID string
}

type valuesReq struct {
	FormID            string
	FieldID           string
	ExcludeResponseID string
}

type formsResponse struct {
	Forms []flatten.FormSummary `json:"forms"`
}

type responsesResponse struct {
	FormID    string                  `json:"form_id,omitempty"`
	Responses []store.ResponseSummary `json:"responses"`
}

type recordsResponse struct {
	ResponseID string           `json:"response_id"`
	Records    []flatten.Record `json:"records"`
}

type chiffresResponse struct {
	Chiffres []store.ChiffreGroup `json:"chiffres"`
}

type importsResponse struct {
	Imports []store.ImportRun `json:"imports"`
}

type valuesResponse struct {
	FormID  string             `json:"form_id"`
	FieldID string             `json:"field_id"`
	Values  []store.ValueCount `json:"values"`
}

// errBadRequest marks endpoint errors caused by the caller.
var errBadRequest = errors.New("bad request")

type endpoints struct {
	searchForms      kit.Endpoint
	listResponses    kit.Endpoint
	getResponse      kit.Endpoint
	listChiffres     kit.Endpoint
	searchRecords    kit.Endpoint
	valueFrequencies kit.Endpoint
	listImports      kit.Endpoint
}

func newEndpoints(b Browser, logger *slog.Logger) endpoints {
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.Logging(logger, name), kit.Recover())(ep)
	}
	return endpoints{
		searchForms:      wrap("search_forms", searchFormsEndpoint(b)),
		listResponses:    wrap("list_responses", listResponsesEndpoint(b)),
		getResponse:      wrap("get_response", getResponseEndpoint(b)),
		listChiffres:     wrap("list_chiffres", listChiffresEndpoint(b)),
		searchRecords:    wrap("search_records", searchRecordsEndpoint(b)),
		valueFrequencies: wrap("value_frequencies", valueFrequenciesEndpoint(b)),
		listImports:      wrap("list_imports", listImportsEndpoint(b)),
	}
}

func searchFormsEndpoint(b Browser) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*searchReq)
		fs, err := b.SearchForms(ctx, req.Query, req.Limit)
		if err != nil {
			return nil, err
		}
		return formsResponse{Forms: fs}, nil
	}
}

func listResponsesEndpoint(b Browser) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*formReq)
		if req.FormID == "" {
			return nil, fmt.Errorf("%w: form_id is required", errBadRequest)
		}
		rs, err := b.ResponseSummaries(ctx, req.FormID)
		if err != nil {
			return nil, err
		}
		return responsesResponse{FormID: req.FormID, Responses: rs}, nil
	}
}

func getResponseEndpoint(b Browser) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*responseReq)
		if req.ResponseID == "" {
			return nil, fmt.Errorf("%w: response_id is required", errBadRequest)
		}
		recs, err := b.ResponseRecords(ctx, req.ResponseID)
		if err != nil {
			return nil, err
		}
		return recordsResponse{ResponseID: req.ResponseID, Records: recs}, nil
	}
}

func listChiffresEndpoint(b Browser) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		gs, err := b.ChiffreGroups(ctx)
		if err != nil {
			return nil, err
		}
		return chiffresResponse{Chiffres: gs}, nil
	}
}

func searchRecordsEndpoint(b Browser) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*searchReq)
		if req.Query == "" {
			return nil, fmt.Errorf("%w: q is required", errBadRequest)
		}
		rs, err := b.SearchRecords(ctx, req.Query, req.Limit)
		if err != nil {
			return nil, err
		}
		return responsesResponse{Responses: rs}, nil
	}
}

func valueFrequenciesEndpoint(b Browser) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*valuesReq)
		if req.FormID == "" || req.FieldID == "" {
			return nil, fmt.Errorf("%w: form_id and field_id are required", errBadRequest)
		}
		vs, err := b.ValueFrequencies(ctx, req.FormID, req.FieldID, req.ExcludeResponseID)
		if err != nil {
			return nil, err
		}
		return valuesResponse{FormID: req.FormID, FieldID: req.FieldID, Values: vs}, nil
	}
}

func listImportsEndpoint(b Browser) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		runs, err := b.ListImports(ctx)
		if err != nil {
			return nil, err
		}
		if runs == nil {
			runs = []store.ImportRun{}
		}
		return importsResponse{Imports: runs}, nil
	}
}
