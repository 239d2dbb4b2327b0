package rest

import (
	"github.com/dennishilgert/fnexec/internal/app/executor"
	"github.com/dennishilgert/fnexec/pkg/function"
)

type ListFunctionsResponse struct {
	Functions []*function.Spec `json:"functions"`
}

type EntryPointsResponse struct {
	Name        string   `json:"name"`
	EntryPoints []string `json:"entryPoints"`
}

type InvocationsRequest struct {
	Name  string `param:"name" validate:"required"`
	Limit int64  `query:"limit" validate:"omitempty,min=1,max=1000"`
}

type InvocationsResponse struct {
	Name        string            `json:"name"`
	Invocations []executor.Record `json:"invocations"`
}

type ErrorResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Available []string          `json:"available,omitempty"`
}
