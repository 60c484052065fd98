package swagger

import _ "embed"

// OpenAPI is the site API document served at SpecPath.
//
//go:embed openapi.yaml
var OpenAPI []byte
