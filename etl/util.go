package etl

import (
	"github.com/redferry/redferry/catalog"
)

// missingStrings returns the elements of source absent from
// destination. The result follows source enumeration order but its
// content is independent of either listing order.
func missingStrings(source, destination []string) []string {
	existing := make(map[string]struct{}, len(destination))
	for _, name := range destination {
		existing[name] = struct{}{}
	}

	missing := make([]string, 0)
	for _, name := range source {
		if _, ok := existing[name]; !ok {
			missing = append(missing, name)
		}
	}

	return missing
}

// missingTables returns the source tables absent from destination, on
// (schema, table) identity.
func missingTables(source, destination []catalog.TableRef) []catalog.TableRef {
	existing := make(map[catalog.TableRef]struct{}, len(destination))
	for _, ref := range destination {
		existing[ref] = struct{}{}
	}

	missing := make([]catalog.TableRef, 0)
	for _, ref := range source {
		if _, ok := existing[ref]; !ok {
			missing = append(missing, ref)
		}
	}

	return missing
}
