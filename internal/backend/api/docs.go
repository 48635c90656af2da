package api

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
)

const (
	apiTitle   = "Screenshots API"
	apiVersion = "1.0.0"
)

const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Screenshots API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({ url: "/docs/json", dom_id: "#swagger-ui" });
  </script>
</body>
</html>
`

func (s *APIService) setDocsRoutes(e *echo.Echo) {
	document := NewOpenAPIDocument()
	e.GET("/docs", func(ctx echo.Context) error {
		return ctx.HTML(http.StatusOK, swaggerUIPage)
	})
	e.GET("/docs/json", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, document)
	})
}

// NewOpenAPIDocument describes every route registered by SetRoutes.
func NewOpenAPIDocument() *openapi3.T {
	screenshot := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("mimeType", openapi3.NewStringSchema()).
		WithProperty("fileName", openapi3.NewStringSchema()).
		WithProperty("position", openapi3.NewIntegerSchema()).
		WithProperty("createdAt", openapi3.NewDateTimeSchema()).
		WithProperty("updatedAt", openapi3.NewDateTimeSchema()).
		WithProperty("imageUrl", openapi3.NewStringSchema())
	message := openapi3.NewObjectSchema().WithProperty("message", openapi3.NewStringSchema())

	upload := openapi3.NewObjectSchema().
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("position", openapi3.NewIntegerSchema()).
		WithProperty("image", openapi3.NewStringSchema().WithFormat("binary"))
	createUpload := openapi3.NewObjectSchema().
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("position", openapi3.NewIntegerSchema()).
		WithProperty("image", openapi3.NewStringSchema().WithFormat("binary"))
	createUpload.Required = []string{"title", "description", "image"}
	plainUpdate := openapi3.NewObjectSchema().
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("position", openapi3.NewIntegerSchema())

	jsonResponse := func(description string, schema *openapi3.Schema) *openapi3.Response {
		return openapi3.NewResponse().WithDescription(description).WithJSONSchema(schema)
	}
	binaryResponse := func(description, contentType string) *openapi3.Response {
		return openapi3.NewResponse().WithDescription(description).
			WithContent(openapi3.NewContentWithSchema(openapi3.NewStringSchema().WithFormat("binary"), []string{contentType}))
	}
	idParameter := &openapi3.ParameterRef{Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema())}

	health := openapi3.NewOperation()
	health.Summary = "Liveness probe"
	health.AddResponse(http.StatusOK, jsonResponse("Service is up", openapi3.NewObjectSchema().WithProperty("status", openapi3.NewStringSchema())))

	list := openapi3.NewOperation()
	list.Summary = "List screenshots ordered by position and creation time"
	list.AddResponse(http.StatusOK, jsonResponse("Screenshots", openapi3.NewArraySchema().WithItems(screenshot)))

	create := openapi3.NewOperation()
	create.Summary = "Upload a screenshot"
	create.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).
		WithContent(openapi3.NewContentWithFormDataSchema(createUpload))}
	create.AddResponse(http.StatusCreated, jsonResponse("Created screenshot", screenshot))
	create.AddResponse(http.StatusBadRequest, jsonResponse("Missing fields or image", message))
	create.AddResponse(http.StatusRequestEntityTooLarge, jsonResponse("Image exceeds the upload limit", message))

	image := openapi3.NewOperation()
	image.Summary = "Download the stored image"
	image.Parameters = openapi3.Parameters{idParameter}
	image.AddResponse(http.StatusOK, binaryResponse("Raw image bytes", "application/octet-stream"))
	image.AddResponse(http.StatusNotFound, jsonResponse("Unknown screenshot", message))

	patchContent := openapi3.NewContentWithFormDataSchema(upload)
	patchContent["application/json"] = openapi3.NewMediaType().WithSchema(plainUpdate)
	update := openapi3.NewOperation()
	update.Summary = "Update the given fields of a screenshot"
	update.Parameters = openapi3.Parameters{idParameter}
	update.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithContent(patchContent)}
	update.AddResponse(http.StatusOK, jsonResponse("Updated screenshot", screenshot))
	update.AddResponse(http.StatusNotFound, jsonResponse("Unknown screenshot", message))
	update.AddResponse(http.StatusRequestEntityTooLarge, jsonResponse("Image exceeds the upload limit", message))

	remove := openapi3.NewOperation()
	remove.Summary = "Delete a screenshot"
	remove.Parameters = openapi3.Parameters{idParameter}
	remove.AddResponse(http.StatusNoContent, openapi3.NewResponse().WithDescription("Deleted"))
	remove.AddResponse(http.StatusNotFound, jsonResponse("Unknown screenshot", message))

	export := openapi3.NewOperation()
	export.Summary = "Export all screenshots as a PDF, one page each"
	export.AddResponse(http.StatusOK, binaryResponse("PDF document", mimePDF))

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: apiTitle, Version: apiVersion},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/health", &openapi3.PathItem{Get: health}),
			openapi3.WithPath(screenshotsBaseURL, &openapi3.PathItem{Get: list, Post: create}),
			openapi3.WithPath(screenshotsBaseURL+"/export/pdf", &openapi3.PathItem{Get: export}),
			openapi3.WithPath(screenshotsBaseURL+"/{id}/image", &openapi3.PathItem{Get: image}),
			openapi3.WithPath(screenshotsBaseURL+"/{id}", &openapi3.PathItem{Patch: update, Delete: remove}),
		),
	}
}
