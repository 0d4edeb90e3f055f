package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectDispatch      = "gateway.dispatch.v1"
	SubjectCatalogChange = "gateway.catalog.changed"
)

// BuildCatalogChangeSubject builds a granular catalog change subject
// for one entity ("gateway.catalog.changed.learned.blog_post").
func BuildCatalogChangeSubject(source, entity string) string {
	return fmt.Sprintf("gateway.catalog.changed.%s.%s", safeToken(source), safeToken(entity))
}

// BuildModuleSubject builds a COMMS subject for a feature module's own
// dispatch endpoint.
func BuildModuleSubject(module string, major int) string {
	return fmt.Sprintf("gateway.%s.dispatch.v%d", safeToken(module), major)
}

// safeToken lowercases a name and maps subject-breaking characters to
// underscores.
func safeToken(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
