package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
)

// defaultDocsPath is where the OpenAPI document lives relative to the
// working directory of the binary.
const defaultDocsPath = "api/openapi.yaml"

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>footpath | walking distance API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>body{margin:0}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/docs/openapi.json',
      dom_id: '#swagger-ui',
      docExpansion: 'list',
      defaultModelsExpandDepth: 0,
      tryItOutEnabled: true,
      presets: [SwaggerUIBundle.presets.apis],
    });
  </script>
</body>
</html>`

// apiDocs is the OpenAPI document as served: the YAML source untouched and
// a JSON rendering whose info.version is the running build.
type apiDocs struct {
	yaml []byte
	json []byte
}

// loadDocs reads and validates the OpenAPI document at path.
func loadDocs(ctx context.Context, path, version string) (*apiDocs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	doc.Info.Version = version

	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}
	return &apiDocs{yaml: data, json: js}, nil
}

// SetupDocs registers Swagger UI at /docs and the OpenAPI document at
// /docs/openapi.yaml and /docs/openapi.json. The document is loaded once; when
// it is missing or invalid the docs routes answer 404 and the API still runs.
func SetupDocs(app *fiber.App, deps *Dependencies) {
	docs, err := loadDocs(context.Background(), deps.docsPath(), deps.version())
	if err != nil {
		slog.Warn("api docs disabled", "path", deps.docsPath(), "error", err)
	}

	notFound := func(c *fiber.Ctx) error {
		return newError(c, fiber.StatusNotFound, "not_found", "API documentation is not available")
	}

	app.Get("/docs", func(c *fiber.Ctx) error {
		if docs == nil {
			return notFound(c)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(swaggerUIHTML)
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		if docs == nil {
			return notFound(c)
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(docs.yaml)
	})

	app.Get("/docs/openapi.json", func(c *fiber.Ctx) error {
		if docs == nil {
			return notFound(c)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(docs.json)
	})
}
