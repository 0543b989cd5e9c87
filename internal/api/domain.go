package api

import (
	"github.com/planverify/verdict/internal/applications"
	"github.com/planverify/verdict/internal/checks"
	"github.com/planverify/verdict/internal/documents"
	"github.com/planverify/verdict/internal/submissions"
	"github.com/planverify/verdict/pkg/rules"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Applications applications.System
	Submissions  submissions.System
	Documents    documents.System
	Checks       checks.System
}

// NewDomain creates all domain systems from the API runtime and the
// loaded rule catalog.
func NewDomain(runtime *Runtime, catalog *rules.Catalog) *Domain {
	appsSystem := applications.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	subsSystem := submissions.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	docsSystem := documents.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	checksSystem := checks.New(
		runtime.Database.Connection(),
		runtime.Agent,
		runtime.Policy,
		runtime.Linker,
		catalog,
		runtime.Logger,
		runtime.Pagination,
		appsSystem,
		subsSystem,
		docsSystem,
	)

	return &Domain{
		Applications: appsSystem,
		Submissions:  subsSystem,
		Documents:    docsSystem,
		Checks:       checksSystem,
	}
}
