package postgresrepo

import "go.opentelemetry.io/otel"

var tracer = otel.GetTracerProvider().Tracer("github.com/kirinyoku/party-rsvp/internal/repository/postgres")
