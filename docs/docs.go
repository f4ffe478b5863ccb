// Package docs registers the OpenAPI document served under /swagger. The document is kept
// by hand next to the handler annotations; `swag init -g cmd/spacebook/main.go` regenerates
// a fuller one from them.
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
        "/healthz": {"get": {"summary": "Health check", "responses": {"200": {"description": "OK"}}}},
        "/spaces": {"get": {"summary": "List spaces", "responses": {"200": {"description": "OK"}}}},
        "/spaces/{type}": {"get": {"summary": "Get space", "parameters": [{"type": "string", "name": "type", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/spaces/{type}/availability": {"get": {"summary": "Availability of a space on a date", "parameters": [{"type": "string", "name": "type", "in": "path", "required": true}, {"type": "string", "name": "date", "in": "query", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/spaces/{type}/quote": {"post": {"summary": "Price a booking and check availability without reserving", "parameters": [{"type": "string", "name": "type", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/bookings": {"post": {"summary": "Create booking (idempotent)", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "no capacity / blocked / idem in progress"}, "429": {"description": "rate limited"}}}},
        "/bookings/recurring": {"post": {"summary": "Create recurring bookings", "responses": {"200": {"description": "no occurrence booked"}, "201": {"description": "at least one occurrence booked"}}}},
        "/bookings/{id}": {"get": {"summary": "Get booking", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/bookings/number/{number}": {"get": {"summary": "Get booking by its booking number", "parameters": [{"type": "string", "name": "number", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/me/bookings": {"get": {"summary": "List my bookings", "responses": {"200": {"description": "OK"}}}},
        "/bookings/{id}/cancel": {"post": {"summary": "Cancel booking", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "409": {"description": "Conflict"}}}},
        "/bookings/{id}/check-in": {"post": {"summary": "Check in", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/bookings/{id}/confirm-payment": {"post": {"summary": "Confirm payment", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/bookings/{id}/payment-failed": {"post": {"summary": "Record a failed payment", "responses": {"200": {"description": "OK"}}}},
        "/bookings/{id}/complete": {"post": {"summary": "Complete booking", "responses": {"200": {"description": "OK"}}}},
        "/bookings/{id}/no-show": {"post": {"summary": "Mark booking as no-show", "responses": {"200": {"description": "OK"}}}},
        "/admin/spaces/{type}": {"put": {"summary": "Create or replace a space definition", "responses": {"200": {"description": "OK"}}}},
        "/admin/availability": {"get": {"summary": "Ledger records in a date range", "responses": {"200": {"description": "OK"}}}},
        "/admin/availability/{type}/{date}/block": {"post": {"summary": "Block a space for a date", "responses": {"200": {"description": "OK"}}}},
        "/admin/availability/{type}/{date}/unblock": {"post": {"summary": "Lift a manual block", "responses": {"200": {"description": "OK"}}}},
        "/admin/availability/{type}/{date}/maintenance": {
            "post": {"summary": "Schedule maintenance", "responses": {"200": {"description": "OK"}}},
            "delete": {"summary": "Clear maintenance", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/reconcile": {"post": {"summary": "Compare the ledger with bookings and optionally repair it", "responses": {"200": {"description": "OK"}}}},
        "/admin/bookings/expire": {"post": {"summary": "Cancel unpaid bookings past the payment window", "responses": {"200": {"description": "OK"}}}},
        "/ws/availability": {"get": {"summary": "Stream availability changes", "responses": {"101": {"description": "Switching Protocols"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Spacebook API",
	Description:      "Coworking space availability and reservation service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
