// Package docs holds the OpenAPI description served at /swagger.
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
        "/search": {
            "get": {
                "description": "Returns diversified, deduplicated and ranked items for every category.",
                "produces": ["application/json"],
                "tags": ["Discovery"],
                "summary": "Search recommendations",
                "operationId": "search",
                "parameters": [
                    {"type": "string", "description": "User ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "description": "Search query", "name": "q", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SearchResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/categories/{category}": {
            "get": {
                "description": "Returns a longer diversified list for one category plus a preview of the others.",
                "produces": ["application/json"],
                "tags": ["Discovery"],
                "summary": "Category detail view",
                "operationId": "categoryDetail",
                "parameters": [
                    {"type": "string", "description": "User ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"enum": ["artists", "celebrities", "media", "fashion"], "type": "string", "description": "Category", "name": "category", "in": "path", "required": true},
                    {"type": "string", "description": "Search query", "name": "q", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CategoryResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/suggestions": {
            "get": {
                "description": "Completes a partial query from popular terms and the user's history.",
                "produces": ["application/json"],
                "tags": ["Discovery"],
                "summary": "Search suggestions",
                "operationId": "suggestions",
                "parameters": [
                    {"type": "string", "description": "User ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "description": "Partial query", "name": "q", "in": "query"},
                    {"maximum": 50, "minimum": 1, "type": "integer", "default": 8, "description": "Max suggestions", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SuggestionsResponse"}}
                }
            }
        },
        "/popular": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Discovery"],
                "summary": "Popular search terms",
                "operationId": "popular",
                "parameters": [
                    {"enum": ["artists", "celebrities", "media", "fashion"], "type": "string", "description": "Restrict to one category", "name": "category", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SuggestionsResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["History"],
                "summary": "Recent searches",
                "operationId": "listHistory",
                "parameters": [
                    {"type": "string", "description": "User ID (demo header)", "name": "X-User-ID", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HistoryResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["History"],
                "summary": "Clear search history",
                "operationId": "clearHistory",
                "parameters": [
                    {"type": "string", "description": "User ID (demo header)", "name": "X-User-ID", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ClearHistoryResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/history/{term}": {
            "delete": {
                "description": "Removal is exact: the term must match the stored spelling.",
                "tags": ["History"],
                "summary": "Remove one search term",
                "operationId": "deleteHistoryTerm",
                "parameters": [
                    {"type": "string", "description": "User ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "description": "Stored term", "name": "term", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content", "schema": {"type": "string"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Term not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/favorites": {
            "get": {
                "description": "Returns a page of the user's favorites. Supports weak ETag via If-None-Match and may return 304.",
                "produces": ["application/json"],
                "tags": ["Favorites"],
                "summary": "List favorites (paginated)",
                "operationId": "listFavorites",
                "parameters": [
                    {"type": "string", "description": "User ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"enum": ["artists", "celebrities", "media", "fashion"], "type": "string", "description": "Filter by category", "name": "category", "in": "query"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListFavoritesResponse"}, "headers": {"ETag": {"type": "string", "description": "Weak ETag for current result"}}},
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Saves an item under a category. Supports idempotency via the Idempotency-Key header.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Favorites"],
                "summary": "Save a favorite",
                "operationId": "addFavorite",
                "parameters": [
                    {"type": "string", "description": "User ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "description": "Idempotency key for safe retries (UUID recommended)", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Favorite payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.AddFavoriteRequest"}}
                ],
                "responses": {
                    "200": {"description": "Existing favorite refreshed", "schema": {"$ref": "#/definitions/domain.Favorite"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Favorite"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/favorites/{id}": {
            "delete": {
                "tags": ["Favorites"],
                "summary": "Remove a favorite",
                "operationId": "deleteFavorite",
                "parameters": [
                    {"type": "string", "description": "User ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "format": "uuid", "description": "Favorite ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content", "schema": {"type": "string"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Favorite not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.RecommendationItem": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "King Gnu"},
                "reason": {"type": "string", "example": "rock band"},
                "features": {"type": "array", "items": {"type": "string"}},
                "imageUrl": {"type": "string", "example": "/placeholder.svg"},
                "officialUrl": {"type": "string", "example": "https://kinggnu.jp/"},
                "apiData": {"type": "object"}
            }
        },
        "domain.Favorite": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "category": {"type": "string", "example": "artists"},
                "name": {"type": "string"},
                "reason": {"type": "string"},
                "features": {"type": "array", "items": {"type": "string"}},
                "imageUrl": {"type": "string"},
                "officialUrl": {"type": "string"},
                "apiData": {"type": "object"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.SearchEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "term": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "handlers.AddFavoriteRequest": {
            "type": "object",
            "required": ["category"],
            "properties": {
                "category": {"type": "string", "example": "artists"},
                "item": {"$ref": "#/definitions/domain.RecommendationItem"}
            }
        },
        "handlers.CategoryResponse": {
            "type": "object",
            "properties": {
                "query": {"type": "string", "example": "King Gnu"},
                "category": {"type": "string", "example": "artists"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/domain.RecommendationItem"}},
                "related": {"type": "object"},
                "cached": {"type": "boolean"},
                "fallback": {"type": "boolean"}
            }
        },
        "handlers.ClearHistoryResponse": {
            "type": "object",
            "properties": {"deleted": {"type": "integer"}}
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "resource not found"}
            }
        },
        "handlers.HistoryResponse": {
            "type": "object",
            "properties": {
                "terms": {"type": "array", "items": {"type": "string"}},
                "entries": {"type": "array", "items": {"$ref": "#/definitions/domain.SearchEntry"}}
            }
        },
        "handlers.ListFavoritesResponse": {
            "type": "object",
            "properties": {
                "favorites": {"type": "array", "items": {"$ref": "#/definitions/domain.Favorite"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
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
        "handlers.SearchResponse": {
            "type": "object",
            "properties": {
                "query": {"type": "string", "example": "King Gnu"},
                "data": {"type": "object"},
                "matched": {"type": "boolean"},
                "cached": {"type": "boolean"},
                "fallback": {"type": "boolean"}
            }
        },
        "handlers.SuggestionsResponse": {
            "type": "object",
            "properties": {
                "suggestions": {"type": "array", "items": {"type": "string"}}
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
	Title:            "Discovery API",
	Description:      "Diversified, deduplicated and personalized recommendations across artists, celebrities, media and fashion.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
