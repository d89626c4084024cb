package infer

import "github.com/hargabyte/apishape/internal/types"

// defaultBuiltins returns the fixed table of well-known function result types.
func defaultBuiltins() map[string]*types.Type {
	table := make(map[string]*types.Type)
	set := func(t func() *types.Type, names ...string) {
		for _, n := range names {
			table[n] = t()
		}
	}
	array := func() *types.Type { return types.ArrayOf(nil, types.Mixed()) }
	stringArray := func() *types.Type { return types.ArrayOf(nil, types.String()) }

	set(types.Int,
		"count", "sizeof", "strlen", "mb_strlen", "intval", "time", "mt_rand", "rand",
		"random_int", "array_sum", "crc32", "ord", "strcmp", "strcasecmp", "substr_count",
		"mktime", "memory_get_usage", "func_num_args", "array_push", "array_unshift")
	set(types.String,
		"strval", "implode", "join", "sprintf", "vsprintf", "trim", "ltrim", "rtrim",
		"strtolower", "strtoupper", "ucfirst", "lcfirst", "ucwords", "substr", "mb_substr",
		"str_repeat", "str_pad", "nl2br", "htmlspecialchars", "htmlentities", "addslashes",
		"stripslashes", "strip_tags", "md5", "sha1", "hash", "base64_encode", "bin2hex",
		"uniqid", "date", "number_format", "chr", "gettype", "get_class", "php_uname",
		"phpversion", "serialize", "var_export", "urlencode", "rawurlencode", "http_build_query",
		"strrev", "wordwrap")
	set(types.Float, "floatval", "round", "floor", "ceil", "microtime", "lcg_value", "fmod", "sqrt", "pi")
	set(types.Bool,
		"boolval", "is_int", "is_integer", "is_float", "is_string", "is_bool", "is_array",
		"is_object", "is_null", "is_numeric", "is_callable", "is_iterable", "is_countable",
		"is_a", "is_subclass_of", "in_array", "array_key_exists", "key_exists", "empty",
		"str_contains", "str_starts_with", "str_ends_with", "method_exists", "property_exists",
		"function_exists", "class_exists", "interface_exists", "file_exists", "is_file",
		"is_dir", "is_readable", "is_writable", "ctype_digit", "ctype_alpha", "array_is_list")
	set(array,
		"array_keys", "array_values", "array_merge", "array_merge_recursive", "array_map",
		"array_filter", "array_slice", "array_splice", "array_reverse", "array_unique",
		"array_combine", "array_flip", "array_fill", "array_fill_keys", "array_diff",
		"array_intersect", "array_column", "array_chunk", "array_pad", "range", "compact",
		"func_get_args", "get_object_vars", "iterator_to_array")
	set(stringArray, "explode", "str_split", "preg_split", "scandir", "file")

	return table
}
