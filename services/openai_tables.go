package services

import "strings"

// Roles maps the canonical uppercase role keys onto the provider wire format.
// Input roles are matched case-insensitively against this set.
var Roles = map[string]string{
	"TOOL":      "tool",
	"USER":      "user",
	"SYSTEM":    "system",
	"FUNCTION":  "function",
	"ASSISTANT": "assistant",
}

// ResolveRole canonicalizes a caller-supplied role. The second return value
// is false when the role is not part of the fixed enum.
func ResolveRole(role string) (string, bool) {
	wire, ok := Roles[strings.ToUpper(strings.TrimSpace(role))]
	return wire, ok
}

type Assistant struct {
	Name     string
	OpenAIID string
}

// Assistants is the static name-to-upstream-identifier table. Keys are
// consulted uppercase; unknown keys must be rejected by validation before the
// adapter is ever invoked.
var Assistants = map[string]Assistant{
	"BOBA": {
		Name:     "Boba, the tea servant",
		OpenAIID: "asst_loV42lYPajq6clFeuc7NUYJD",
	},
	"GUMALA": {
		Name:     "Gumala, the mission creator",
		OpenAIID: "asst_gaoi2gtedrZCkI7okaLLYKm1",
	},
	"THOTH": {
		Name:     "Thoth, the character creator",
		OpenAIID: "asst_0JIwwGF60gNCmZg9KI9zaO4O",
	},
	"LYRA": {
		Name:     "Lyra, the dictionary creator",
		OpenAIID: "asst_N6paFuUYBW1yEZyU0Tui5EAn",
	},
	"SENET": {
		Name:     "Senet",
		OpenAIID: "asst_pb1FVuV7vhmB2De2mdBIKpwq",
	},
	"NIMROD": {
		Name:     "Nimrod",
		OpenAIID: "asst_Pww75H9CwZvkUnjrJLCp4W4Z",
	},
	"PROCYON": {
		Name:     "Procyon",
		OpenAIID: "asst_KwCoshgx2q1xDmjNek3YFplT",
	},
	"SENET_DUNGEON_WORLD_MASTER": {
		Name:     "Senet Dungeon World Master",
		OpenAIID: "asst_2psVgXP5Qtx0EcLf34yyK2YG",
	},
}

// ResolveAssistant looks up an assistant by its uppercase key.
func ResolveAssistant(name string) (Assistant, bool) {
	assistant, ok := Assistants[strings.ToUpper(strings.TrimSpace(name))]
	return assistant, ok
}

// Temperatures names the sampling presets callers may request. TEMP_MEDIUM is
// the default applied when the requested name is unknown or empty.
var Temperatures = map[string]float64{
	"TEMP_LOW":    0.2,
	"TEMP_MEDIUM": 1,
	"TEMP_HIGH":   1.5,
}

func resolveTemperature(name string) float64 {
	if temp, ok := Temperatures[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return temp
	}
	return Temperatures["TEMP_MEDIUM"]
}
