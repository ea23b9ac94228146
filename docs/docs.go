// Package docs registers the API description served under /swagger.
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/api/projects/{project_id}/dashboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "Project dashboard",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/api/tasks/{task_id}/work": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Record work done",
                "parameters": [
                    {"type": "string", "description": "Task ID", "name": "task_id", "in": "path", "required": true},
                    {"description": "Area laid", "name": "body", "in": "body", "required": true,
                     "schema": {"type": "object", "properties": {"area_m2": {"type": "number", "example": 120}}}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/api/ai/report": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ai"],
                "summary": "AI site report",
                "parameters": [
                    {"description": "Project", "name": "body", "in": "body", "required": true,
                     "schema": {"type": "object", "properties": {"project_id": {"type": "string", "example": "p1"}}}}
                ],
                "responses": {
                    "200": {"description": "OK"}
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
	Schemes:          []string{"http", "https"},
	Title:            "ScreedFlow API",
	Description:      "Site management backend: projects, zones, crews, stock and AI site reports.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
