package store

// GenKey builds a deterministic child key from a parent key and a local
// name, e.g. GenKey("global", "web") == "global-web". Every entity key in
// §3 is built this way; centralizing the concatenation here is what
// guarantees every derived key matches the rule consistently, the same
// requirement original_source/src/utils/key.rs::gen_key enforces for the
// reference implementation.
func GenKey(parentKey, name string) string {
	return parentKey + "-" + name
}
