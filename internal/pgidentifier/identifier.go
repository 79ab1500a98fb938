package pgidentifier

import (
	"regexp"
	"strings"
)

var (
	// SimpleIdentifierRegex matches identifiers in Postgres that require no quotes
	SimpleIdentifierRegex = regexp.MustCompile("^[a-z_][a-z0-9_$]*$")

	// reservedKeywords are every keyword that is not UNRESERVED in the Postgres keyword list: RESERVED,
	// TYPE_FUNC_NAME (e.g., left, join, verbose) and COL_NAME (e.g., int, coalesce). quote_ident quotes the same set.
	reservedKeywords = keywordSet(
		// RESERVED
		"all", "analyse", "analyze", "and", "any", "array", "as", "asc", "asymmetric", "both", "case", "cast",
		"check", "collate", "column", "constraint", "create", "current_catalog", "current_date", "current_role",
		"current_time", "current_timestamp", "current_user", "default", "deferrable", "desc", "distinct", "do",
		"else", "end", "except", "false", "fetch", "for", "foreign", "from", "grant", "group", "having", "in",
		"initially", "intersect", "into", "lateral", "leading", "limit", "localtime", "localtimestamp", "not",
		"null", "offset", "on", "only", "or", "order", "placing", "primary", "references", "returning", "select",
		"session_user", "some", "symmetric", "system_user", "table", "then", "to", "trailing", "true", "union",
		"unique", "user", "using", "variadic", "when", "where", "window", "with",
		// TYPE_FUNC_NAME
		"authorization", "binary", "collation", "concurrently", "cross", "current_schema", "freeze", "full",
		"ilike", "inner", "is", "isnull", "join", "left", "like", "natural", "notnull", "outer", "overlaps",
		"right", "similar", "tablesample", "verbose",
		// COL_NAME
		"between", "bigint", "bit", "boolean", "char", "character", "coalesce", "dec", "decimal", "exists",
		"extract", "float", "greatest", "grouping", "inout", "int", "integer", "interval", "json", "json_array",
		"json_arrayagg", "json_exists", "json_object", "json_objectagg", "json_query", "json_scalar",
		"json_serialize", "json_table", "json_value", "least", "merge_action", "national", "nchar", "none",
		"normalize", "nullif", "numeric", "out", "overlay", "position", "precision", "real", "row", "setof",
		"smallint", "substring", "time", "timestamp", "treat", "trim", "values", "varchar", "xmlattributes",
		"xmlconcat", "xmlelement", "xmlexists", "xmlforest", "xmlnamespaces", "xmlparse", "xmlpi", "xmlroot",
		"xmlserialize", "xmltable",
	)
)

func keywordSet(keywords ...string) map[string]bool {
	set := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		set[k] = true
	}
	return set
}

func IsSimpleIdentifier(val string) bool {
	return SimpleIdentifierRegex.MatchString(val)
}

// QuoteIdentifier quotes a single identifier part if Postgres would otherwise fold or reject it.
// Simple identifiers are returned as-is, so generated DDL stays readable.
func QuoteIdentifier(val string) string {
	if IsSimpleIdentifier(val) && !reservedKeywords[val] {
		return val
	}
	return ForceQuoteIdentifier(val)
}

// ForceQuoteIdentifier always double-quotes the identifier, escaping embedded quotes.
func ForceQuoteIdentifier(val string) string {
	return `"` + strings.ReplaceAll(val, `"`, `""`) + `"`
}

// QuoteQualifiedName quotes each part of a possibly schema-qualified name, e.g., "reporting.Active Users"
// becomes `reporting."Active Users"`. Parts that are already double-quoted are kept verbatim.
func QuoteQualifiedName(name string) string {
	parts := SplitQualifiedName(name)
	for i, p := range parts {
		if isQuoted(p) {
			continue
		}
		parts[i] = QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// SplitQualifiedName splits a name on the dots that are not inside double quotes.
func SplitQualifiedName(name string) []string {
	var parts []string
	var sb strings.Builder
	inQuotes := false
	for _, r := range name {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			sb.WriteRune(r)
		case r == '.' && !inQuotes:
			parts = append(parts, sb.String())
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	return append(parts, sb.String())
}

// Unquote reverses QuoteIdentifier for a single part.
func Unquote(val string) string {
	if !isQuoted(val) {
		return val
	}
	return strings.ReplaceAll(val[1:len(val)-1], `""`, `"`)
}

func isQuoted(val string) bool {
	return len(val) >= 2 && strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`)
}
