package deploy

import "go.opentelemetry.io/otel"

const name = "github.com/ocuroot/ud/deploy"

var tracer = otel.Tracer(name)
