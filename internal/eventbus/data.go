package eventbus

import "encoding/json"

// ToData marshals v (typically a domain entity) into the map[string]interface{}
// shape Event.Data requires. Services publish whole entities as event payloads
// (spec.md §6: "Project or {id}"); this is the one conversion point so every
// publisher does not hand-roll its own map.
func ToData(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}
