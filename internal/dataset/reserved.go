package dataset

import (
	"fmt"
	"strings"

	"github.com/desertthunder/ifbsync/internal/shared"
)

// sqlKeywords are names the platform's record storage rejects as element names.
var sqlKeywords = []string{
	"abort", "absolute", "access", "action", "add", "after", "all", "allocate", "alter", "analyse",
	"analyze", "and", "any", "are", "array", "as", "asc", "asensitive", "assertion", "asymmetric",
	"at", "atomic", "attach", "audit", "authorization", "autoincrement", "avg", "before", "begin",
	"between", "bigint", "binary", "bit", "bit_length", "blob", "boolean", "both", "breadth", "by",
	"call", "called", "cascade", "cascaded", "case", "cast", "catalog", "change", "char",
	"char_length", "character", "character_length", "check", "class", "client_id", "clob", "close",
	"cluster", "coalesce", "collate", "collation", "column", "comment", "commit", "compress",
	"condition", "conflict", "connect", "connection", "constraint", "constraints", "constructor",
	"contains", "continue", "convert", "corresponding", "count", "create", "cross", "cube", "current",
	"current_date", "current_default_transform_group", "current_path", "current_role", "current_time",
	"current_timestamp", "current_transform_group_for_type", "current_user", "cursor", "cycle",
	"data", "database", "databases", "date", "day", "day_hour", "day_microsecond", "day_minute",
	"day_second", "deallocate", "dec", "decimal", "declare", "default", "deferrable", "deferred",
	"delayed", "delete", "depth", "deref", "desc", "describe", "descriptor", "detach",
	"deterministic", "diagnostics", "disconnect", "distinct", "distinctrow", "div", "do", "domain",
	"double", "drop", "dual", "dynamic", "each", "element", "else", "elseif", "enclosed", "end",
	"equals", "escape", "escaped", "except", "exception", "exclusive", "exec", "execute", "exists",
	"exit", "explain", "external", "extract", "fail", "false", "fetch", "file", "filter", "first",
	"float", "float4", "float8", "for", "force", "foreign", "found", "free", "freeze", "from", "full",
	"fulltext", "function", "general", "get", "glob", "global", "go", "goto", "grant", "group",
	"grouping", "handler", "having", "high_priority", "hold", "hour", "hour_microsecond",
	"hour_minute", "hour_second", "id", "identified", "identity", "if", "ignore", "ilike",
	"immediate", "in", "increment", "index", "indexed", "indicator", "infile", "initial", "initially",
	"inner", "inout", "input", "insensitive", "insert", "instead", "int", "int1", "int2", "int3",
	"int4", "int8", "integer", "intersect", "interval", "into", "is", "isnull", "isolation",
	"iterate", "join", "key", "keys", "kill", "language", "large", "last", "lateral", "leading",
	"leave", "left", "level", "like", "limit", "lines", "load", "local", "localtime",
	"localtimestamp", "locator", "location", "lock", "long", "longblob", "longtext", "loop",
	"low_priority", "lower", "map", "match", "max", "maxextents", "mediumblob", "mediumint",
	"mediumtext", "member", "merge", "method", "middleint", "min", "minus", "minute",
	"minute_microsecond", "minute_second", "mlslabel", "mod", "mode", "modifies", "modify", "module",
	"month", "multiset", "names", "national", "natural", "nchar", "nclob", "new", "next", "no",
	"no_write_to_binlog", "noaudit", "nocompress", "none", "not", "notnull", "nowait", "null",
	"nullif", "number", "numeric", "object", "octet_length", "of", "off", "offline", "offset", "old",
	"on", "online", "only", "open", "optimize", "option", "optionally", "or", "order", "ordinality",
	"out", "outer", "outfile", "output", "over", "overlaps", "pad", "parameter", "partial",
	"partition", "path", "pctfree", "placing", "plan", "position", "pragma", "precision", "prepare",
	"preserve", "primary", "prior", "privileges", "procedure", "public", "purge", "query", "raid0",
	"raise", "range", "raw", "read", "reads", "real", "recursive", "ref", "references", "referencing",
	"regexp", "reindex", "relative", "release", "rename", "repeat", "replace", "require", "resignal",
	"resource", "restrict", "result", "return", "returns", "revoke", "right", "rlike", "role",
	"rollback", "rollup", "routine", "row", "rowid", "rownum", "rows", "savepoint", "scale", "schema",
	"schemas", "scope", "scroll", "search", "second", "second_microsecond", "section", "select",
	"sensitive", "separator", "sequence", "session", "session_user", "set", "sets", "share", "show",
	"signal", "similar", "size", "smallint", "some", "soname", "space", "spatial", "specific",
	"specifictype", "sql", "sql_big_result", "sql_calc_found_rows", "sql_small_result", "sqlcode",
	"sqlerror", "sqlexception", "sqlstate", "sqlwarning", "ssl", "start", "starting", "state",
	"static", "straight_join", "submultiset", "substring", "successful", "sum", "symmetric",
	"synonym", "sysdate", "system", "system_user", "table", "tablesample", "temp", "temporary",
	"terminated", "then", "time", "timestamp", "timezone_hour", "timezone_minute", "tinyblob",
	"tinyint", "tinytext", "to", "trailing", "transaction", "translate", "translation", "treat",
	"trigger", "trim", "true", "type", "uid", "under", "undo", "union", "unique", "unknown", "unlock",
	"unnest", "unsigned", "until", "update", "upgrade", "upper", "usage", "use", "user", "using",
	"utc_date", "utc_time", "utc_timestamp", "vacuum", "validate", "value", "values", "varbinary",
	"varchar", "varchar2", "varcharacter", "varying", "verbose", "view", "virtual", "void", "when",
	"whenever", "where", "while", "window", "with", "within", "without", "work", "write", "x509",
	"xor", "year", "year_month", "zerofill", "zone",
}

// metadataFields are columns every iFormBuilder record already carries.
var metadataFields = []string{
	"created_date", "created_by", "created_location", "created_device_id", "modified_date",
	"modified_by", "modified_location", "modified_device_id", "parent_record_id", "parent_page_id",
	"parent_element_id",
}

var reserved = func() map[string]struct{} {
	m := make(map[string]struct{}, len(sqlKeywords)+len(metadataFields))
	for _, names := range [][]string{sqlKeywords, metadataFields} {
		for _, n := range names {
			m[n] = struct{}{}
		}
	}
	return m
}()

// IsReserved reports whether name is a reserved element name. Matching ignores case.
func IsReserved(name string) bool {
	_, ok := reserved[strings.ToLower(name)]
	return ok
}

// ReservedColumns returns every column that collides with a reserved name, in column order.
func ReservedColumns(columns []string) []string {
	var found []string
	for _, c := range columns {
		if IsReserved(c) {
			found = append(found, c)
		}
	}
	return found
}

// CheckReserved fails with [shared.ErrReservedColumn] naming every offending column.
func CheckReserved(columns []string) error {
	if found := ReservedColumns(columns); len(found) > 0 {
		return fmt.Errorf("%w: %s", shared.ErrReservedColumn, strings.Join(found, ", "))
	}
	return nil
}
