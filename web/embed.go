// Package web embeds the browser UI: page templates, the results fragment
// and the camera capture script.
package web

import "embed"

// TemplatesFS holds layouts/, pages/ and partials/. The results partial is
// also served alone as the response to fetch actions.
//
//go:embed all:templates
var TemplatesFS embed.FS

// StaticFS holds app.js, which captures camera frames, and app.css.
//
//go:embed all:static
var StaticFS embed.FS
