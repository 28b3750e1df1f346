// Package docs holds the OpenAPI document served on /swagger. Regenerate with
// `swag init -g cmd/api/main.go -o internal/docs` after changing annotations.
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
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register a new user", "responses": {"201": {"description": "User registered"}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Login user", "responses": {"200": {"description": "Tokens issued"}}}},
        "/auth/email-login": {"post": {"tags": ["auth"], "summary": "Login with email code", "responses": {"200": {"description": "Tokens issued"}}}},
        "/auth/send-email-code": {"post": {"tags": ["auth"], "summary": "Send a verification code", "responses": {"200": {"description": "Code sent"}, "429": {"description": "Requested too soon"}}}},
        "/auth/check-username/{username}": {"get": {"tags": ["auth"], "summary": "Check username availability", "responses": {"200": {"description": "Availability"}}}},
        "/auth/refresh": {"post": {"tags": ["auth"], "summary": "Refresh tokens", "responses": {"200": {"description": "Tokens issued"}}}},
        "/auth/reset-password": {"post": {"tags": ["auth"], "summary": "Reset password", "responses": {"200": {"description": "Password changed"}}}},
        "/auth/logout": {"post": {"tags": ["auth"], "summary": "Logout", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Logged out"}}}},
        "/user/me": {"get": {"tags": ["auth"], "summary": "Current user", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Profile"}}}},
        "/service-categories": {
            "get": {"tags": ["service-categories"], "summary": "List service categories", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Category forest"}}},
            "post": {"tags": ["service-categories"], "summary": "Create service category", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/service-categories/batch-delete": {"post": {"tags": ["service-categories"], "summary": "Delete several service categories", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Deleted"}}}},
        "/service-categories/{id}": {
            "get": {"tags": ["service-categories"], "summary": "Get service category", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Category"}}},
            "put": {"tags": ["service-categories"], "summary": "Update service category", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Category"}}},
            "delete": {"tags": ["service-categories"], "summary": "Delete service category", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Deleted"}}}
        },
        "/service-categories/{id}/status": {"put": {"tags": ["service-categories"], "summary": "Toggle service category status", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Category"}}}},
        "/service-categories/{id}/restore": {"post": {"tags": ["service-categories"], "summary": "Restore service category", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Category"}}}},
        "/admin/assign-role": {"post": {"tags": ["admin"], "summary": "Assign a role", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Role assigned"}}}},
        "/admin/permissions": {"get": {"tags": ["admin"], "summary": "Own permissions", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Roles and permissions"}}}},
        "/admin/users": {"get": {"tags": ["admin"], "summary": "List users", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Page of users"}}}},
        "/support/verification-codes": {"delete": {"tags": ["support"], "summary": "Clear verification codes", "security": [{"APIKeyAuth": []}], "responses": {"200": {"description": "Cleared"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"description": "Type \"Bearer\" followed by a space and JWT token.", "type": "apiKey", "name": "Authorization", "in": "header"},
        "APIKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "homeserve API",
	Description:      "Household-services platform: accounts, verification codes and the service catalog.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
