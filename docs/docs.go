// Package docs registers the OpenAPI document served under /swagger.
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
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Create an account",
                "parameters": [
                    {"description": "Sign-up form", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/apperr.Success"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apperr.Envelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign in with email and password",
                "parameters": [
                    {"description": "Credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/apperr.Success"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apperr.Envelope"}}
                }
            }
        },
        "/airports": {
            "get": {
                "produces": ["application/json"],
                "tags": ["airports"],
                "summary": "List airports",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["airports"],
                "summary": "Create an airport",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/apperr.Success"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apperr.Envelope"}}
                }
            }
        },
        "/seat-classes": {
            "get": {
                "produces": ["application/json"],
                "tags": ["seat-classes"],
                "summary": "List cabin classes",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/routes/search": {
            "get": {
                "produces": ["application/json"],
                "tags": ["routes"],
                "summary": "Search bookable routes",
                "parameters": [
                    {"type": "string", "description": "Departure airport code", "name": "departureAirportCode", "in": "query", "required": true},
                    {"type": "string", "description": "Arrival airport code", "name": "arrivalAirportCode", "in": "query", "required": true},
                    {"type": "string", "description": "Departure date (YYYY-MM-DD)", "name": "departureDate", "in": "query", "required": true},
                    {"type": "boolean", "description": "Also search the way back", "name": "isRoundTrip", "in": "query"},
                    {"type": "string", "description": "Return date (YYYY-MM-DD)", "name": "returnDate", "in": "query"},
                    {"type": "integer", "description": "Seats per leg", "name": "seats", "in": "query"},
                    {"type": "boolean", "description": "Skip connecting itineraries", "name": "directFlightsOnly", "in": "query"},
                    {"type": "integer", "description": "Seat class id", "name": "cabinClass", "in": "query"},
                    {"type": "string", "description": "Sort key", "name": "sortBy", "in": "query"},
                    {"type": "string", "description": "asc or desc", "name": "sortOrder", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apperr.Envelope"}}
                }
            }
        },
        "/routes": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["routes"],
                "summary": "Create a route and generate its flights",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/apperr.Success"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apperr.Envelope"}}
                }
            }
        },
        "/reservations": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["reservations"],
                "summary": "Book seats on a route",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/apperr.Success"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apperr.Envelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/apperr.Envelope"}}
                }
            }
        },
        "/complaints": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["complaints"],
                "summary": "File a complaint",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/apperr.Success"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apperr.Envelope"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Report Postgres and Redis reachability",
                "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}
            }
        }
    },
    "definitions": {
        "apperr.Envelope": {
            "type": "object",
            "properties": {
                "isSuccessful": {"type": "boolean"},
                "errors": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "string"}}},
                "entries": {"type": "object", "additionalProperties": true}
            }
        },
        "apperr.Success": {
            "type": "object",
            "properties": {
                "isSuccessful": {"type": "boolean"},
                "entries": {"type": "object", "additionalProperties": true}
            }
        },
        "auth.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "rememberMe": {"type": "boolean"}
            }
        },
        "auth.RegisterRequest": {
            "type": "object",
            "required": ["email", "firstName", "lastName", "password", "phoneNumber", "username"],
            "properties": {
                "email": {"type": "string"},
                "firstName": {"type": "string", "maxLength": 50},
                "lastName": {"type": "string", "maxLength": 50},
                "password": {"type": "string"},
                "phoneNumber": {"type": "string"},
                "username": {"type": "string", "maxLength": 50}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "FlightBooker API",
	Description:      "Flight scheduling, seat search and booking.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
