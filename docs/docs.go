// Package docs holds the swagger description of the HTTP surface.
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
        "/": {
            "get": {
                "tags": ["auth"],
                "summary": "Redirect to the login form",
                "responses": {"302": {"description": "Redirect to /login"}}
            }
        },
        "/login": {
            "get": {
                "produces": ["text/html"],
                "tags": ["auth"],
                "summary": "Login form",
                "responses": {"200": {"description": "HTML page", "schema": {"type": "string"}}}
            },
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["text/html"],
                "tags": ["auth"],
                "summary": "Login user",
                "parameters": [
                    {"type": "string", "description": "Email", "name": "email", "in": "formData", "required": true},
                    {"type": "string", "description": "Password", "name": "password", "in": "formData", "required": true}
                ],
                "responses": {
                    "302": {"description": "Redirect to /admin or /user", "schema": {"type": "string"}},
                    "400": {"description": "Form re-rendered", "schema": {"type": "string"}},
                    "401": {"description": "Form re-rendered, invalid credentials", "schema": {"type": "string"}},
                    "500": {"description": "Internal server error", "schema": {"type": "string"}}
                }
            }
        },
        "/register": {
            "get": {
                "produces": ["text/html"],
                "tags": ["auth"],
                "summary": "Registration form",
                "responses": {"200": {"description": "HTML page", "schema": {"type": "string"}}}
            },
            "post": {
                "description": "The first registered user becomes admin.",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["text/html"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [
                    {"type": "string", "description": "Email", "name": "email", "in": "formData", "required": true},
                    {"type": "string", "description": "Password", "name": "password", "in": "formData", "required": true}
                ],
                "responses": {
                    "302": {"description": "Redirect to /admin or /user", "schema": {"type": "string"}},
                    "400": {"description": "Form re-rendered", "schema": {"type": "string"}},
                    "409": {"description": "Form re-rendered, user exists", "schema": {"type": "string"}},
                    "500": {"description": "Internal server error", "schema": {"type": "string"}}
                }
            }
        },
        "/logout": {
            "get": {
                "description": "Destroys the session. Always redirects, even when the session backend fails.",
                "tags": ["auth"],
                "summary": "Logout user",
                "responses": {"302": {"description": "Redirect to /login", "schema": {"type": "string"}}}
            }
        },
        "/user": {
            "get": {
                "produces": ["text/html"],
                "tags": ["users"],
                "summary": "Member landing page",
                "responses": {
                    "200": {"description": "HTML page", "schema": {"type": "string"}},
                    "302": {"description": "Redirect to /login without a session", "schema": {"type": "string"}}
                }
            }
        },
        "/admin": {
            "get": {
                "produces": ["text/html"],
                "tags": ["users"],
                "summary": "Admin listing of all users, newest first",
                "responses": {
                    "200": {"description": "HTML page", "schema": {"type": "string"}},
                    "403": {"description": "Access denied", "schema": {"type": "string"}},
                    "500": {"description": "Internal server error", "schema": {"type": "string"}}
                }
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
	Title:            "Decepticon",
	Description:      "Session-based registration, login and role-gated pages.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
