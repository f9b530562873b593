// Package swagger holds the OpenAPI document served under /v1/swagger.
// Regenerate with: swag init -g cmd/server/server.go -o docs/swagger
package swagger

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
        "/v1/conversations": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Conversations API"],
                "summary": "List conversations",
                "responses": {
                    "200": {"description": "Successfully retrieved conversations", "schema": {"$ref": "#/definitions/conversationresponses.ConversationListResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Conversations API"],
                "summary": "Create a conversation",
                "parameters": [
                    {"description": "Create conversation request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/requests.CreateConversationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Successfully created conversation", "schema": {"$ref": "#/definitions/conversationresponses.ConversationResponse"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            }
        },
        "/v1/conversations/{conversation_id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Conversations API"],
                "summary": "Get a conversation",
                "parameters": [
                    {"type": "string", "description": "Conversation ID (format: conv_xxxxx)", "name": "conversation_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Successfully retrieved conversation", "schema": {"$ref": "#/definitions/conversationresponses.ConversationResponse"}},
                    "404": {"description": "Conversation not found", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Conversations API"],
                "summary": "Rename a conversation",
                "parameters": [
                    {"type": "string", "description": "Conversation ID (format: conv_xxxxx)", "name": "conversation_id", "in": "path", "required": true},
                    {"description": "Rename request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/requests.RenameConversationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Successfully renamed conversation", "schema": {"$ref": "#/definitions/conversationresponses.ConversationResponse"}},
                    "400": {"description": "Invalid title", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "404": {"description": "Conversation not found", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Conversations API"],
                "summary": "Delete a conversation",
                "parameters": [
                    {"type": "string", "description": "Conversation ID (format: conv_xxxxx)", "name": "conversation_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Successfully deleted conversation", "schema": {"$ref": "#/definitions/conversationresponses.DeletedConversationResponse"}},
                    "404": {"description": "Conversation not found", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            }
        },
        "/v1/chat": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["text/event-stream"],
                "tags": ["Chat API"],
                "summary": "Stream a chat turn",
                "parameters": [
                    {"description": "Chat request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/requests.ChatRequest"}}
                ],
                "responses": {
                    "200": {"description": "Server-Sent Events stream", "schema": {"type": "string"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "404": {"description": "Conversation not found", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "502": {"description": "The model provider could not be reached", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            }
        },
        "/v1/chat/title": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Chat API"],
                "summary": "Generate a conversation title",
                "parameters": [
                    {"description": "Title request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/requests.TitleRequest"}}
                ],
                "responses": {
                    "200": {"description": "Generated or stored title", "schema": {"$ref": "#/definitions/chatresponses.TitleResponse"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            }
        },
        "/v1/providers": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Providers API"],
                "summary": "List providers and models",
                "responses": {
                    "200": {"description": "Provider catalog", "schema": {"$ref": "#/definitions/chatresponses.ProviderListResponse"}}
                }
            }
        },
        "/v1/version": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Server API"],
                "summary": "Get API build version",
                "responses": {
                    "200": {"description": "Version information", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/v1/debug/config": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Server API"],
                "summary": "Report configuration status",
                "parameters": [
                    {"type": "string", "description": "Debug secret, required in production", "name": "X-Debug-Secret", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "Configuration status", "schema": {"type": "object"}},
                    "403": {"description": "Forbidden in production without the debug secret", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "chatresponses.ProviderListResponse": {
            "type": "object",
            "properties": {
                "object": {"type": "string"},
                "default_provider": {"type": "string"},
                "default_model": {"type": "string"},
                "data": {"type": "array", "items": {"$ref": "#/definitions/chatresponses.ProviderResponse"}}
            }
        },
        "chatresponses.ProviderResponse": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "name": {"type": "string"},
                "configured": {"type": "boolean"},
                "models": {"type": "array", "items": {"$ref": "#/definitions/provider.Model"}}
            }
        },
        "chatresponses.TitleResponse": {
            "type": "object",
            "properties": {
                "conversation_id": {"type": "string"},
                "title": {"type": "string"},
                "version": {"type": "integer"}
            }
        },
        "conversationresponses.ConversationListResponse": {
            "type": "object",
            "properties": {
                "object": {"type": "string"},
                "total": {"type": "integer"},
                "data": {"type": "array", "items": {"$ref": "#/definitions/conversationresponses.ConversationResponse"}}
            }
        },
        "conversationresponses.ConversationResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "object": {"type": "string"},
                "title": {"type": "string"},
                "provider": {"type": "string"},
                "model": {"type": "string"},
                "title_locked": {"type": "boolean"},
                "title_finalized": {"type": "boolean"},
                "version": {"type": "integer"},
                "message_count": {"type": "integer"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/conversationresponses.MessageResponse"}},
                "created_at": {"type": "integer"},
                "updated_at": {"type": "integer"}
            }
        },
        "conversationresponses.DeletedConversationResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "object": {"type": "string"},
                "deleted": {"type": "boolean"}
            }
        },
        "conversationresponses.MessageResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "role": {"type": "string"},
                "content": {"type": "string"},
                "provider": {"type": "string"},
                "model": {"type": "string"},
                "sequence": {"type": "integer"},
                "created_at": {"type": "integer"}
            }
        },
        "provider.Model": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "requests.ChatRequest": {
            "type": "object",
            "required": ["messages", "model", "provider"],
            "properties": {
                "conversation_id": {"type": "string"},
                "provider": {"type": "string"},
                "model": {"type": "string"},
                "user_message_id": {"type": "string"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/requests.Message"}}
            }
        },
        "requests.CreateConversationRequest": {
            "type": "object",
            "required": ["model", "provider"],
            "properties": {
                "title": {"type": "string"},
                "provider": {"type": "string"},
                "model": {"type": "string"}
            }
        },
        "requests.Message": {
            "type": "object",
            "required": ["content", "role"],
            "properties": {
                "role": {"type": "string", "enum": ["user", "assistant"]},
                "content": {"type": "string"}
            }
        },
        "requests.RenameConversationRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "title": {"type": "string"}
            }
        },
        "requests.TitleRequest": {
            "type": "object",
            "required": ["messages"],
            "properties": {
                "conversation_id": {"type": "string"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/requests.Message"}}
            }
        },
        "responses.ErrorDetail": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "type": {"type": "string"},
                "code": {"type": "string"},
                "request_id": {"type": "string"}
            }
        },
        "responses.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/responses.ErrorDetail"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Atlas Chat API",
	Description:      "Multi-provider chat backend: conversations, streamed chat turns and title synthesis.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
