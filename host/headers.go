package host

// headerPairs normalizes a lifted list<tuple<string, string>> into key/value
// pairs, tolerating the shapes the runtime may hand over.
func headerPairs(v any) [][2]string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([][2]string, 0, len(list))
	for _, item := range list {
		switch pair := item.(type) {
		case []any:
			if len(pair) == 2 {
				k, ok1 := pair[0].(string)
				val, ok2 := pair[1].(string)
				if ok1 && ok2 {
					out = append(out, [2]string{k, val})
				}
			}
		case []string:
			if len(pair) == 2 {
				out = append(out, [2]string{pair[0], pair[1]})
			}
		}
	}
	return out
}
