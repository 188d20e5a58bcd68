package books

import (
	"slices"
)

// mergeFunc combines an existing collection with an incoming one.
type mergeFunc func(existing, incoming []any) []any

// collectionStrategies is the strategy table for keyed collections.
// Characters and environments merge by business name; chapters merge by
// chapter number and stay sorted. Arrays outside this table are replaced
// outright, which is the safer default than guessing a positional merge.
var collectionStrategies = map[string]mergeFunc{
	KeyCharacters:   mergeKeyed(fieldName, nil),
	KeyEnvironments: mergeKeyed(fieldName, nil),
	KeyChapters:     mergeKeyed(fieldChapterNumber, sortChapters),
}

// Merge combines an incoming partial payload with the existing step
// data. The cardinal rule: an incoming null or empty-string field never
// erases a non-empty existing value, so a partial update from the agent
// cannot silently destroy previously accumulated content.
func Merge(existing, incoming Payload) Payload {
	if incoming == nil {
		return existing.Clone()
	}
	if existing == nil {
		existing = Payload{}
	}
	return Payload(mergeObjects(map[string]any(existing.Clone()), map[string]any(incoming)))
}

func mergeObjects(existing, incoming map[string]any) map[string]any {
	if existing == nil {
		existing = map[string]any{}
	}

	for key, in := range incoming {
		if skippable(in) {
			continue
		}
		existing[key] = mergeField(key, existing[key], in)
	}
	return existing
}

func mergeField(key string, existing, incoming any) any {
	if strategy, ok := collectionStrategies[key]; ok {
		ex, exOK := existing.([]any)
		in, inOK := incoming.([]any)
		if exOK && inOK {
			return strategy(ex, in)
		}
		if inOK {
			// No existing collection: still normalize through the
			// strategy so chapters arrive sorted.
			return strategy(nil, in)
		}
	}

	exObj, exOK := existing.(map[string]any)
	inObj, inOK := incoming.(map[string]any)
	if exOK && inOK {
		return mergeObjects(clonePayloadValue(exObj).(map[string]any), inObj)
	}

	return clonePayloadValue(incoming)
}

// mergeKeyed merges collections entry-by-entry matched on keyField:
// matched entries take a shallow overlay (null/empty skipped), unmatched
// incoming entries append. normalize, when set, post-processes the
// merged slice.
func mergeKeyed(keyField string, normalize func([]any)) mergeFunc {
	return func(existing, incoming []any) []any {
		merged := make([]any, 0, len(existing)+len(incoming))
		for _, item := range existing {
			merged = append(merged, clonePayloadValue(item))
		}

		for _, item := range incoming {
			entry, ok := item.(map[string]any)
			if !ok {
				merged = append(merged, clonePayloadValue(item))
				continue
			}

			match := findEntry(merged, keyField, entry[keyField])
			if match == nil {
				merged = append(merged, clonePayloadValue(entry))
				continue
			}

			for k, v := range entry {
				if skippable(v) {
					continue
				}
				match[k] = clonePayloadValue(v)
			}
		}

		if normalize != nil {
			normalize(merged)
		}
		return merged
	}
}

func findEntry(entries []any, keyField string, key any) map[string]any {
	if skippable(key) {
		return nil
	}
	for _, item := range entries {
		e, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if keysEqual(e[keyField], key) {
			return e
		}
	}
	return nil
}

// keysEqual compares business keys, normalizing JSON numbers so an int
// chapter number matches its float64 decoding.
func keysEqual(a, b any) bool {
	if an, ok := asInt(a); ok {
		if bn, ok := asInt(b); ok {
			return an == bn
		}
		return false
	}
	return a == b
}

func sortChapters(entries []any) {
	slices.SortStableFunc(entries, func(a, b any) int {
		an := chapterSortKey(a)
		bn := chapterSortKey(b)
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	})
}

func chapterSortKey(v any) int {
	e, ok := v.(map[string]any)
	if !ok {
		return 0
	}
	n, _ := asInt(e[fieldChapterNumber])
	return n
}

// skippable reports whether an incoming value must be ignored by the
// merge: nulls and empty strings are treated as "not touched" rather
// than "cleared".
func skippable(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
