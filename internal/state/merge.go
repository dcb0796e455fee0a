package state

// Merge folds updates into target and returns target. When both sides hold a map
// at the same key the maps are merged recursively; any other combination is an
// overwrite, so lists arrive as complete replacements and a map can replace a
// scalar or the other way round. A nil target is allocated.
func Merge(target, updates Map) Map {
	if target == nil {
		target = make(Map, len(updates))
	}
	for key, incoming := range updates {
		nested, incomingIsMap := incoming.AsMap()
		existing, existingIsMap := target[key].AsMap()
		if incomingIsMap && existingIsMap {
			target[key] = Object(Merge(existing, nested))
			continue
		}
		target[key] = incoming
	}
	return target
}

// Prune drops null entries from m, descending into nested maps and maps held in
// lists. Maps left empty by pruning are kept. The input is modified in place.
func Prune(m Map) Map {
	for key, v := range m {
		switch v.Kind() {
		case KindNull:
			delete(m, key)
		case KindMap:
			nested, _ := v.AsMap()
			m[key] = Object(Prune(nested))
		case KindList:
			items, _ := v.AsList()
			for i, item := range items {
				if nested, ok := item.AsMap(); ok {
					items[i] = Object(Prune(nested))
				}
			}
		}
	}
	return m
}

// Lookup walks a dotted path of map keys and returns the value found there.
func Lookup(m Map, path ...string) (Value, bool) {
	current := Object(m)
	for _, key := range path {
		nested, ok := current.AsMap()
		if !ok {
			return Value{}, false
		}
		current, ok = nested[key]
		if !ok {
			return Value{}, false
		}
	}
	return current, true
}
