package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

var ginPathParamRe = regexp.MustCompile(`:([^/]+)`)

// ginPathToSwaggerPath converts Gin path params :param to Swagger {param}.
func ginPathToSwaggerPath(path string) string {
	return ginPathParamRe.ReplaceAllString(path, "{$1}")
}

// routeOperation is the placeholder operation for a route the annotated document does not describe.
func routeOperation(method, path string) map[string]any {
	op := map[string]any{
		"summary":  method + " " + path,
		"tags":     []string{"api"},
		"produces": []string{"application/json"},
		"responses": map[string]any{
			"200": map[string]any{"description": "Success"},
		},
	}
	for _, m := range ginPathParamRe.FindAllStringSubmatch(path, -1) {
		params, _ := op["parameters"].([]map[string]any)
		op["parameters"] = append(params, map[string]any{
			"in": "path", "name": m[1], "required": true, "type": "string",
		})
	}
	return op
}

// BuildSwaggerDoc merges the registered routes into the annotated document so every
// mounted endpoint is listed even when its handler carries no annotations.
func BuildSwaggerDoc(routes gin.RoutesInfo, annotated string) map[string]any {
	doc := map[string]any{}
	if annotated != "" {
		_ = json.Unmarshal([]byte(annotated), &doc)
	}
	if doc["swagger"] == nil {
		doc["swagger"] = "2.0"
	}
	paths, _ := doc["paths"].(map[string]any)
	if paths == nil {
		paths = map[string]any{}
	}

	for _, route := range routes {
		if strings.HasPrefix(route.Path, "/swagger") {
			continue
		}
		path := ginPathToSwaggerPath(route.Path)
		ops, _ := paths[path].(map[string]any)
		if ops == nil {
			ops = map[string]any{}
			paths[path] = ops
		}
		method := strings.ToLower(route.Method)
		if _, ok := ops[method]; !ok {
			ops[method] = routeOperation(route.Method, route.Path)
		}
	}
	doc["paths"] = paths
	return doc
}

// SwaggerHandler serves doc.json from the routes of engine and the UI for everything else.
func SwaggerHandler(engine *gin.Engine) gin.HandlerFunc {
	ui := ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json"))
	return func(c *gin.Context) {
		if c.Param("any") != "/doc.json" {
			ui(c)
			return
		}
		annotated, _ := swag.ReadDoc("swagger")
		doc := BuildSwaggerDoc(engine.Routes(), annotated)
		doc["host"] = c.Request.Host
		c.JSON(http.StatusOK, doc)
	}
}
