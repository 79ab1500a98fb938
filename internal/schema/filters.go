package schema

import "fmt"

// nameFilter is one of the most generic of filters. We can use it to filter objects by their schema name or name.
type nameFilter func(name SchemaQualifiedName) bool

func schemaNameFilter(schema string) nameFilter {
	return func(obj SchemaQualifiedName) bool {
		return obj.SchemaName == schema
	}
}

func notSchemaNameFilter(schema string) nameFilter {
	return func(obj SchemaQualifiedName) bool {
		return obj.SchemaName != schema
	}
}

func orNameFilter(filters ...nameFilter) nameFilter {
	return func(obj SchemaQualifiedName) bool {
		for _, filter := range filters {
			if filter(obj) {
				return true
			}
		}
		return false
	}
}

func andNameFilter(filters ...nameFilter) nameFilter {
	return func(obj SchemaQualifiedName) bool {
		if len(filters) == 0 {
			return false
		}

		for _, filter := range filters {
			if !filter(obj) {
				return false
			}
		}
		return true
	}
}

func buildNameFilter(options getOptions) (nameFilter, error) {
	if intersection := intersect(options.includeSchemas, options.excludeSchemas); len(intersection) > 0 {
		return nil, fmt.Errorf("schemas %v are both included and excluded", intersection)
	}

	includeSchemasFilter := func(SchemaQualifiedName) bool { return true }
	if len(options.includeSchemas) > 0 {
		var filters []nameFilter
		for _, schema := range options.includeSchemas {
			filters = append(filters, schemaNameFilter(schema))
		}
		includeSchemasFilter = orNameFilter(filters...)
	}

	excludeSchemasFilter := func(SchemaQualifiedName) bool { return true }
	if len(options.excludeSchemas) > 0 {
		var filters []nameFilter
		for _, schema := range options.excludeSchemas {
			filters = append(filters, notSchemaNameFilter(schema))
		}
		excludeSchemasFilter = andNameFilter(filters...)
	}

	return andNameFilter(includeSchemasFilter, excludeSchemasFilter), nil
}

func intersect(a, b []string) []string {
	inA := make(map[string]bool)
	for _, s := range a {
		inA[s] = true
	}
	var intersection []string
	for _, s := range b {
		if inA[s] {
			intersection = append(intersection, s)
		}
	}
	return intersection
}

func filterSliceByName[T any](objs []T, getNameFn func(T) SchemaQualifiedName, filter nameFilter) []T {
	var filteredObjs []T
	for _, obj := range objs {
		if filter(getNameFn(obj)) {
			filteredObjs = append(filteredObjs, obj)
		}
	}
	return filteredObjs
}
