package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/actionmesh/gateway/pkg/action"
	"github.com/actionmesh/gateway/pkg/binder"
	"github.com/actionmesh/gateway/pkg/catalog"
	"github.com/actionmesh/gateway/pkg/operation"
)

const logPrefix = "dispatch:dispatcher"

// Invoker is the handler-execution substrate: given a resolved
// descriptor and its typed input, it returns a result or an error.
// Owned by the feature modules, outside the dispatch pipeline.
type Invoker interface {
	Invoke(ctx context.Context, d *operation.Descriptor, input interface{}) (interface{}, error)
}

// DescriptorInvoker executes a descriptor's own Handle closure.
type DescriptorInvoker struct{}

// Invoke calls the descriptor's handler.
func (DescriptorInvoker) Invoke(ctx context.Context, d *operation.Descriptor, input interface{}) (interface{}, error) {
	if d.Handle == nil {
		return nil, fmt.Errorf("operation %s has no handler", d.Name)
	}
	return d.Handle(ctx, input)
}

// Dispatcher orchestrates parse, resolve, bind, invoke and wrap.
type Dispatcher struct {
	registry *operation.Registry
	catalog  *catalog.Catalog
	invoker  Invoker
}

// NewDispatcher creates a Dispatcher. A nil invoker defaults to
// executing each descriptor's own handler.
func NewDispatcher(reg *operation.Registry, cat *catalog.Catalog, invoker Invoker) *Dispatcher {
	if invoker == nil {
		invoker = DescriptorInvoker{}
	}
	return &Dispatcher{registry: reg, catalog: cat, invoker: invoker}
}

// Dispatch runs the pipeline for one request. Every failure is
// returned as a structured Result; the pipeline never panics or
// raises. The handler invocation is the only step that observes ctx.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Result {
	slog.Debug(fmt.Sprintf("%s - action=%s entity=%s id=%s", logPrefix, req.Action, req.Entity, req.ID))

	if req.Action == "" {
		return failure(req.ID, CodeInvalidRequest, "action is required", false)
	}

	// Classify and parse.
	parsed := action.Parse(req.Action, d.catalog)
	entity := parsed.EntityCandidate
	verb := parsed.Verb
	if req.Entity != "" {
		// An explicit entity hint wins; the whole action is the verb
		// unless the suffix match already consumed the same entity.
		if !sameEntity(d.catalog, entity, req.Entity) {
			entity = req.Entity
			verb = exportVerb(req.Action)
		}
	}

	// Resolve, then retry via the literal conventional identifier.
	desc := d.registry.Resolve(parsed.Kind, entity, verb)
	if desc == nil {
		desc = d.registry.ResolveLiteral(verb + entity + string(parsed.Kind))
	}
	if desc == nil {
		return failure(req.ID, CodeOperationNotFound,
			fmt.Sprintf("no %s operation %q for entity %q", parsed.Kind, verb, entity), false)
	}

	// Bind payload and route parameters into the typed input.
	input, err := binder.Bind(desc, req.Payload, req.RouteParams)
	if err != nil {
		return failure(req.ID, CodeRequestCreationFailed, err.Error(), false)
	}

	// Invoke the handler substrate; the pipeline's only suspension point.
	data, err := d.invoker.Invoke(ctx, desc, input)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - %s failed: %v", logPrefix, desc.Name, err))
		return failure(req.ID, CodeDispatchError, err.Error(), true)
	}

	return &Result{
		ID:      req.ID,
		Success: true,
		Data:    data,
		Metadata: map[string]string{
			"kind":      string(desc.Kind),
			"entity":    desc.Entity,
			"verb":      desc.Verb,
			"operation": desc.Name,
		},
	}
}

// sameEntity reports whether two entity names normalize to the same
// singular form. Deliberately avoids CanonicalName so a mere
// comparison does not trigger the catalog's learning fallback.
func sameEntity(cat *catalog.Catalog, a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	pl := cat.Pluralizer()
	return strings.EqualFold(pl.Singularize(a), pl.Singularize(b))
}

func exportVerb(verb string) string {
	if verb == "" {
		return verb
	}
	if verb[0] >= 'a' && verb[0] <= 'z' {
		return string(verb[0]-'a'+'A') + verb[1:]
	}
	return verb
}
