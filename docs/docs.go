// Package docs is generated by swag from the handler annotations.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/balance": {
            "get": {
                "description": "Returns granted, consumed and available credits. The account is created on first contact.",
                "produces": ["application/json"],
                "tags": ["Balance"],
                "summary": "Credit balance",
                "operationId": "getBalance",
                "parameters": [
                    {"type": "string", "example": "123456789", "description": "User ID", "name": "X-User-ID", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Balance"}},
                    "401": {"description": "Missing X-User-ID", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/lookups": {
            "get": {
                "description": "Newest first. Supports a weak ETag via If-None-Match and may return 304.",
                "produces": ["application/json"],
                "tags": ["Lookups"],
                "summary": "List lookups (paginated)",
                "operationId": "listLookups",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListLookupsResponse"}, "headers": {"ETag": {"type": "string", "description": "Weak ETag for the caller's lookups"}}},
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "401": {"description": "Missing X-User-ID", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Admits, registers and launches a lookup. The lookup is charged only if it succeeds. Retries with the same Idempotency-Key return the original lookup.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Lookups"],
                "summary": "Start a lookup",
                "operationId": "startLookup",
                "parameters": [
                    {"type": "string", "example": "123456789", "description": "User ID", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "example": "7f9c-2024-01", "description": "Retry-safe key", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Lookup", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.StartLookupRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/handlers.LookupView"}, "headers": {"Idempotency-Replayed": {"type": "string", "description": "true when an earlier result was returned"}}},
                    "400": {"description": "Bad request, unknown kind or invalid params", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Missing X-User-ID", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "402": {"description": "Insufficient credits", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Kind disabled", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/lookups/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Lookups"],
                "summary": "Get a lookup",
                "operationId": "getLookup",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "X-User-ID", "in": "header", "required": true},
                    {"minimum": 1, "type": "integer", "description": "Lookup ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LookupView"}},
                    "400": {"description": "Bad id", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Lookup not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/kinds": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "List lookup kinds",
                "operationId": "listKinds",
                "parameters": [
                    {"type": "string", "description": "Admin token", "name": "X-Admin-Token", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListKindsResponse"}},
                    "401": {"description": "Bad admin token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/kinds/{kind}": {
            "put": {
                "description": "Changes price, enabled flag or polling timeout. The new price applies to lookups registered afterwards.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Update a lookup kind",
                "operationId": "updateKind",
                "parameters": [
                    {"type": "string", "description": "Admin token", "name": "X-Admin-Token", "in": "header", "required": true},
                    {"type": "string", "example": "vehicle", "description": "Kind slug or code", "name": "kind", "in": "path", "required": true},
                    {"description": "Patch", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateKindRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.KindView"}},
                    "400": {"description": "Unknown kind or invalid values", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/users/{id}/credits": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Grant credits",
                "operationId": "grantCredits",
                "parameters": [
                    {"type": "string", "description": "Admin token", "name": "X-Admin-Token", "in": "header", "required": true},
                    {"type": "string", "description": "User ID", "name": "id", "in": "path", "required": true},
                    {"description": "Amount", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.GrantCreditsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Balance"}},
                    "400": {"description": "Non-positive amount", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Lookup outcomes",
                "operationId": "lookupStats",
                "parameters": [
                    {"type": "string", "description": "Admin token", "name": "X-Admin-Token", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StatsResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "lookup not found"},
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        },
        "handlers.StartLookupRequest": {
            "type": "object",
            "required": ["kind"],
            "properties": {
                "kind": {"type": "string", "example": "vehicle"},
                "doc_type": {"type": "string", "example": "CC"},
                "doc_number": {"type": "string", "example": "1020304050"},
                "plate": {"type": "string", "example": "ABC123"},
                "chassis": {"type": "string", "example": "9BWZZZ377VT004251"}
            }
        },
        "handlers.LookupView": {
            "type": "object",
            "properties": {
                "id": {"type": "integer", "example": 42},
                "kind": {"type": "string", "example": "vehicle"},
                "kind_code": {"type": "integer", "example": 3},
                "state": {"type": "string", "example": "pending"},
                "price": {"type": "integer", "example": 6000},
                "params": {"type": "object"},
                "result": {"type": "object"},
                "created_at": {"type": "string"},
                "resolved_at": {"type": "string"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "handlers.ListLookupsResponse": {
            "type": "object",
            "properties": {
                "lookups": {"type": "array", "items": {"$ref": "#/definitions/handlers.LookupView"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.KindView": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "example": "vehicle"},
                "code": {"type": "integer", "example": 3},
                "price": {"type": "integer", "example": 6000},
                "enabled": {"type": "boolean", "example": true},
                "timeout_seconds": {"type": "integer", "example": 0},
                "updated_at": {"type": "string"}
            }
        },
        "handlers.ListKindsResponse": {
            "type": "object",
            "properties": {
                "kinds": {"type": "array", "items": {"$ref": "#/definitions/handlers.KindView"}}
            }
        },
        "handlers.UpdateKindRequest": {
            "type": "object",
            "properties": {
                "price": {"type": "integer", "example": 7000},
                "enabled": {"type": "boolean", "example": false},
                "timeout_seconds": {"type": "integer", "example": 90}
            }
        },
        "handlers.GrantCreditsRequest": {
            "type": "object",
            "required": ["amount"],
            "properties": {
                "amount": {"type": "integer", "example": 50000}
            }
        },
        "handlers.OutcomeView": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "example": "person"},
                "state": {"type": "string", "example": "success"},
                "count": {"type": "integer", "example": 17}
            }
        },
        "handlers.StatsResponse": {
            "type": "object",
            "properties": {
                "outcomes": {"type": "array", "items": {"$ref": "#/definitions/handlers.OutcomeView"}}
            }
        },
        "services.Balance": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "credits_total": {"type": "integer"},
                "credits_used": {"type": "integer"},
                "credits_available": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Lookup Bot API",
	Description:      "Registry lookups with per-user credits.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
