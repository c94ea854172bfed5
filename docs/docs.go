// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/trades": {
            "get": {
                "produces": ["application/json"],
                "summary": "List every trade",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Trade"}}}}
            }
        },
        "/trades/{id}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Update a trade; omitted fields are kept",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "trade", "in": "body", "required": true, "schema": {"$ref": "#/definitions/NewTrade"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Trade"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "summary": "Delete a trade",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/add-trade": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Create a trade; PnL is computed server side",
                "parameters": [{"name": "trade", "in": "body", "required": true, "schema": {"$ref": "#/definitions/NewTrade"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Trade"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/upload-csv": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "summary": "Import trades from a CSV file",
                "parameters": [{"name": "file", "in": "formData", "required": true, "type": "file"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/summary": {
            "get": {"produces": ["application/json"], "summary": "Aggregate statistics", "responses": {"200": {"description": "OK"}}}
        },
        "/equity": {
            "get": {"produces": ["application/json"], "summary": "Cumulative PnL by exit time", "responses": {"200": {"description": "OK"}}}
        }
    },
    "definitions": {
        "NewTrade": {
            "type": "object",
            "properties": {
                "symbol": {"type": "string"},
                "direction": {"type": "string", "enum": ["BUY", "SELL"]},
                "entry_price": {"type": "number"},
                "exit_price": {"type": "number"},
                "size": {"type": "number"},
                "fees": {"type": "number"},
                "strategy": {"type": "string"},
                "notes": {"type": "string"},
                "entry_time": {"type": "string", "format": "date-time"},
                "exit_time": {"type": "string", "format": "date-time"}
            }
        },
        "Trade": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "symbol": {"type": "string"},
                "direction": {"type": "string"},
                "entry_price": {"type": "number"},
                "exit_price": {"type": "number"},
                "size": {"type": "number"},
                "fees": {"type": "number"},
                "pnl": {"type": "number"},
                "strategy": {"type": "string"},
                "notes": {"type": "string"},
                "entry_time": {"type": "string", "format": "date-time"},
                "exit_time": {"type": "string", "format": "date-time"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "detail": {"type": "string"},
                "code": {"type": "integer"},
                "request_id": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8000",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "Trade Journal API",
	Description:      "Trade journal backend: trades, summary statistics and CSV import.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
