// Package docs embeds the OpenAPI specification served at /swagger.json.
// The spec is maintained by hand alongside the handler annotations; runtime
// metadata (contact, license, terms of service) is overlaid by the router
// from the api_docs config section.
package docs

import _ "embed"

//go:embed swagger.json
var SwaggerJSON []byte
