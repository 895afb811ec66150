package ginserver

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const apiDocPath = "/swagger/openapi.json"

//go:embed swagger/openapi.json
var openAPIDocument []byte

//go:embed swagger/index.html
var swaggerPage string

// docAsset is an embedded document served with a content hash ETag.
type docAsset struct {
	body        []byte
	contentType string
	etag        string
}

func newDocAsset(body []byte, contentType string) docAsset {
	sum := sha256.Sum256(body)
	return docAsset{body: body, contentType: contentType, etag: `"` + hex.EncodeToString(sum[:8]) + `"`}
}

func (a docAsset) serve(c *gin.Context) {
	c.Header("ETag", a.etag)
	c.Header("Cache-Control", "no-cache")
	if match := c.GetHeader("If-None-Match"); match != "" && match == a.etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, a.contentType, a.body)
}

func registerSwaggerRoutes(router gin.IRoutes) {
	doc := newDocAsset(openAPIDocument, "application/json")
	page := newDocAsset([]byte(strings.ReplaceAll(swaggerPage, "{{SPEC_URL}}", apiDocPath)), "text/html; charset=utf-8")

	router.GET(apiDocPath, doc.serve)
	router.GET("/swagger", page.serve)
}
