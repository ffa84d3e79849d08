package docs

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OpenAPI document served at /openapi.json
const openapiJSON = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Paperwork API",
    "version": "0.1.0"
  },
  "servers": [ { "url": "/" } ],
  "tags": [
    {"name": "paperworks", "description": "Assignment, status and deadlines"},
    {"name": "versions", "description": "Versioned submissions"},
    {"name": "reviews", "description": "Review decisions"},
    {"name": "artifacts", "description": "Artifact download and code bundle browsing"}
  ],
  "components": {
    "securitySchemes": {
      "bearerAuth": {"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
      "tokenQuery": {"type": "apiKey", "in": "query", "name": "token"}
    },
    "schemas": {
      "Error": {
        "type": "object",
        "properties": {
          "error": {"type": "object", "properties": {"kind": {"type": "string"}, "message": {"type": "string"}}}
        }
      }
    }
  },
  "security": [ {"bearerAuth": []}, {"tokenQuery": []} ],
  "paths": {
    "/api/admin/paperworks": {
      "post": {"summary": "Assign a paperwork to a researcher","tags": ["paperworks"],"responses": {"201": {"description": "Created"},"403": {"description": "Not an admin"}}}
    },
    "/api/paperworks": {
      "get": {"summary": "List visible paperworks","tags": ["paperworks"],"responses": {"200": {"description": "OK"}}}
    },
    "/api/paperworks/{id}": {
      "get": {"summary": "Get a paperwork with derived status","tags": ["paperworks"],"responses": {"200": {"description": "OK"},"403": {"description": "Forbidden"},"404": {"description": "Not found"}}}
    },
    "/api/paperworks/{id}/status": {
      "get": {"summary": "Derived status","tags": ["paperworks"],"responses": {"200": {"description": "OK"}}}
    },
    "/api/paperworks/{id}/history": {
      "get": {"summary": "Merged version and review history","tags": ["paperworks"],"responses": {"200": {"description": "OK"}}}
    },
    "/api/paperworks/{id}/deadline": {
      "put": {"summary": "Set or clear the deadline","tags": ["paperworks"],"responses": {"200": {"description": "OK"}}}
    },
    "/api/paperworks/{id}/versions": {
      "get": {"summary": "List versions","tags": ["versions"],"responses": {"200": {"description": "OK"}}},
      "post": {
        "summary": "Submit a new version",
        "tags": ["versions"],
        "requestBody": {"required": true, "content": {"multipart/form-data": {"schema": {"type": "object", "properties": {
          "primary_document": {"type": "string", "format": "binary"},
          "source": {"type": "string", "format": "binary"},
          "code_bundle": {"type": "string", "format": "binary"},
          "auxiliary_document": {"type": "string", "format": "binary"},
          "comments": {"type": "string"}
        }}}}},
        "responses": {"201": {"description": "Created"},"403": {"description": "Not authorized"},"422": {"description": "Invalid artifact"}}
      }
    },
    "/api/paperworks/{id}/versions/{no}": {
      "get": {"summary": "Get one version","tags": ["versions"],"responses": {"200": {"description": "OK"},"404": {"description": "Version not found"}}}
    },
    "/api/paperworks/{id}/review": {
      "post": {"summary": "Record a review of the latest version","tags": ["reviews"],"responses": {"201": {"description": "Created"},"409": {"description": "Nothing to review or stale version"}}}
    },
    "/api/paperworks/{id}/reviews": {
      "get": {"summary": "List reviews","tags": ["reviews"],"responses": {"200": {"description": "OK"}}}
    },
    "/api/paperworks/{id}/versions/{no}/artifacts/{role}": {
      "get": {"summary": "Download an artifact (Range supported)","tags": ["artifacts"],"responses": {"200": {"description": "OK"},"206": {"description": "Partial content"}}}
    },
    "/api/paperworks/{id}/versions/{no}/archive": {
      "get": {"summary": "List code bundle entries","tags": ["artifacts"],"parameters": [{"name": "pattern","in": "query","schema": {"type": "string"}},{"name": "role","in": "query","schema": {"type": "string"}}],"responses": {"200": {"description": "OK"}}}
    },
    "/api/paperworks/{id}/versions/{no}/archive/entry": {
      "get": {"summary": "Extract one code bundle entry","tags": ["artifacts"],"parameters": [{"name": "path","in": "query","required": true,"schema": {"type": "string"}}],"responses": {"200": {"description": "OK"},"413": {"description": "Entry too large"}}}
    }
  }
}`

// RegisterRoutes wires the API documentation endpoints into the Gin engine.
// - GET /openapi.json: OpenAPI 3.0 document
// - GET /docs: Swagger UI (via CDN) loading /openapi.json
func RegisterRoutes(r *gin.Engine) {
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/docs") })
	r.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(openapiJSON))
	})
	r.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})
}

const swaggerHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Paperwork API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  <style>body { margin: 0; padding: 0; }</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.json',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
 </body>
</html>`
