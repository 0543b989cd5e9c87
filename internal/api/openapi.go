package api

import (
	"github.com/planverify/verdict/internal/config"
	"github.com/planverify/verdict/pkg/openapi"
)

// buildSpec describes the API surface for the served /openapi.json
// document. Schemas stay intentionally coarse; the spec documents the
// routes and their shapes, not every nested evidence record.
func buildSpec(cfg *config.Config) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(map[string]*openapi.Schema{
		"Application": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":           {Type: "string", Format: "uuid"},
				"reference":    {Type: "string", Example: "24/01234/FUL"},
				"site_address": {Type: "string"},
				"postcode":     {Type: "string"},
				"proposal":     {Type: "string"},
				"created_at":   {Type: "string", Format: "date-time"},
				"updated_at":   {Type: "string", Format: "date-time"},
			},
		},
		"Submission": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":              {Type: "string", Format: "uuid"},
				"application_id":  {Type: "string", Format: "uuid"},
				"status":          {Type: "string", Enum: []any{"received", "processing", "validated", "failed"}},
				"parent_id":       {Type: "string", Format: "uuid"},
				"link_confidence": {Type: "number"},
				"link_reason":     {Type: "string"},
				"created_at":      {Type: "string", Format: "date-time"},
				"validated_at":    {Type: "string", Format: "date-time"},
			},
		},
		"Document": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":              {Type: "string", Format: "uuid"},
				"submission_id":   {Type: "string", Format: "uuid"},
				"filename":        {Type: "string"},
				"content_type":    {Type: "string"},
				"size_bytes":      {Type: "integer"},
				"page_count":      {Type: "integer"},
				"type":            {Type: "string", Example: "application_form"},
				"type_confidence": {Type: "number"},
				"scanned":         {Type: "boolean"},
				"uploaded_at":     {Type: "string", Format: "date-time"},
			},
		},
		"Check": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":            {Type: "string", Format: "uuid"},
				"submission_id": {Type: "string", Format: "uuid"},
				"run_id":        {Type: "string", Format: "uuid"},
				"rule_id":       {Type: "string", Example: "FEE-001"},
				"status":        {Type: "string", Enum: []any{"pass", "fail", "needs_review"}},
				"severity":      {Type: "string", Enum: []any{"low", "medium", "high", "critical"}},
				"message":       {Type: "string"},
				"no_evidence":   {Type: "boolean"},
			},
		},
		"ValidateRequest": {
			Type:     "object",
			Required: []string{"documents"},
			Properties: map[string]*openapi.Schema{
				"documents": {
					Type:        "array",
					Description: "Per-document OCR layout blocks to validate",
					Items: &openapi.Schema{
						Type: "object",
						Properties: map[string]*openapi.Schema{
							"document_id": {Type: "string", Format: "uuid"},
							"type":        {Type: "string"},
							"blocks":      {Type: "array", Items: &openapi.Schema{Type: "object"}},
						},
					},
				},
			},
		},
		"ReviewRequest": {
			Type:     "object",
			Required: []string{"action", "decided_by"},
			Properties: map[string]*openapi.Schema{
				"action":      {Type: "string", Enum: []any{"confirm", "reject"}},
				"document_id": {Type: "string", Format: "uuid"},
				"note":        {Type: "string"},
				"decided_by":  {Type: "string"},
			},
		},
	})

	addCollection(spec, "/applications", "Application", "Applications")
	spec.Paths["/applications/reference/{reference}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "Find an application by planning reference",
			Tags:    []string{"Applications"},
			Parameters: []*openapi.Parameter{
				{Name: "reference", In: "path", Required: true, Schema: &openapi.Schema{Type: "string"}},
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("The application", "Application"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
	spec.Paths["/applications/{id}"].Delete = &openapi.Operation{
		Summary:    "Delete an application",
		Tags:       []string{"Applications"},
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "Application id")},
		Responses: map[int]*openapi.Response{
			204: {Description: "Deleted"},
			404: openapi.ResponseRef("NotFound"),
		},
	}

	addCollection(spec, "/submissions", "Submission", "Submissions")
	spec.Paths["/submissions/{id}/fields"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Extracted fields of a submission, with evidence",
			Tags:       []string{"Submissions"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Submission id")},
			Responses: map[int]*openapi.Response{
				200: {Description: "Resolved field set"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
	spec.Paths["/submissions/{id}/candidates"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Parent-link candidates discovered for a submission",
			Tags:       []string{"Submissions"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Submission id")},
			Responses: map[int]*openapi.Response{
				200: {Description: "Scored candidates"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
	spec.Paths["/submissions/{id}/link"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:    "Accept a parent-link candidate",
			Tags:       []string{"Submissions"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Submission id")},
			Responses: map[int]*openapi.Response{
				204: {Description: "Link persisted"},
				404: openapi.ResponseRef("NotFound"),
				409: openapi.ResponseRef("Conflict"),
			},
		},
	}

	addCollection(spec, "/documents", "Document", "Documents")
	spec.Paths["/documents"].Post = &openapi.Operation{
		Summary: "Upload a document",
		Tags:    []string{"Documents"},
		RequestBody: &openapi.RequestBody{
			Required: true,
			Content: map[string]*openapi.MediaType{
				"multipart/form-data": {
					Schema: &openapi.Schema{
						Type:     "object",
						Required: []string{"file", "submission_id", "type"},
						Properties: map[string]*openapi.Schema{
							"file":            {Type: "string", Format: "binary"},
							"submission_id":   {Type: "string", Format: "uuid"},
							"type":            {Type: "string", Example: "application_form"},
							"type_confidence": {Type: "number"},
							"scanned":         {Type: "boolean"},
						},
					},
				},
			},
		},
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Uploaded", "Document"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	}
	spec.Paths["/documents/submission/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Documents belonging to a submission",
			Tags:       []string{"Documents"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Submission id")},
			Responses: map[int]*openapi.Response{
				200: {Description: "Document list"},
			},
		},
	}
	spec.Paths["/documents/{id}"].Delete = &openapi.Operation{
		Summary:    "Delete a document and its stored blob",
		Tags:       []string{"Documents"},
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "Document id")},
		Responses: map[int]*openapi.Response{
			204: {Description: "Deleted"},
			404: openapi.ResponseRef("NotFound"),
		},
	}

	addCollection(spec, "/checks", "Check", "Checks")
	spec.Paths["/checks/{id}/decisions"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Review decisions recorded against a check",
			Tags:       []string{"Checks"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Check id")},
			Responses: map[int]*openapi.Response{
				200: {Description: "Decision list"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
	spec.Paths["/checks/submission/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Latest validation run for a submission",
			Tags:       []string{"Checks"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Submission id")},
			Responses: map[int]*openapi.Response{
				200: {Description: "Checks of the latest run, in catalog order"},
			},
		},
	}
	spec.Paths["/checks/submission/{id}/validate"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Run the validation pipeline for a submission",
			Description: "Extracts fields from the provided layout blocks, resolves low-confidence fields through the model gate, discovers a parent version, evaluates the rule catalog, and persists a new check run.",
			Tags:        []string{"Checks"},
			Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Submission id")},
			RequestBody: openapi.RequestBodyJSON("ValidateRequest", true),
			Responses: map[int]*openapi.Response{
				201: {Description: "Pipeline result"},
				404: openapi.ResponseRef("NotFound"),
				409: openapi.ResponseRef("Conflict"),
			},
		},
	}
	spec.Paths["/checks/{id}/review"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Record an officer decision on a check",
			Tags:        []string{"Checks"},
			Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Check id")},
			RequestBody: openapi.RequestBodyJSON("ReviewRequest", true),
			Responses: map[int]*openapi.Response{
				201: {Description: "Decision recorded"},
				400: openapi.ResponseRef("BadRequest"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	return spec
}

// addCollection registers the standard list/find/create/search operations
// every domain module exposes.
func addCollection(spec *openapi.Spec, prefix, schema, tag string) {
	spec.Paths[prefix] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List " + tag,
			Tags:    []string{tag},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("page", "integer", "Page number", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("search", "string", "Search query", false),
			},
			Responses: map[int]*openapi.Response{
				200: {Description: "Page of results"},
			},
		},
		Post: &openapi.Operation{
			Summary:     "Create a " + schema,
			Tags:        []string{tag},
			RequestBody: openapi.RequestBodyJSON(schema, true),
			Responses: map[int]*openapi.Response{
				201: openapi.ResponseJSON("Created", schema),
				400: openapi.ResponseRef("BadRequest"),
				409: openapi.ResponseRef("Conflict"),
			},
		},
	}
	spec.Paths[prefix+"/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Find a " + schema + " by id",
			Tags:       []string{tag},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", schema + " id")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("The "+schema, schema),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
	spec.Paths[prefix+"/search"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Search " + tag + " with filters",
			Tags:        []string{tag},
			RequestBody: openapi.RequestBodyJSON("PageRequest", true),
			Responses: map[int]*openapi.Response{
				200: {Description: "Page of results"},
			},
		},
	}
}
