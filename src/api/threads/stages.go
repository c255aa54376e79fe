package threads

import "encoding/json"

// DefaultStages is the governance lifecycle used when a community defines
// no custom stages.
var DefaultStages = []string{
	"discussion",
	"proposal_in_review",
	"voting",
	"passed",
	"failed",
}

// ParseCustomStages decodes a community's custom-stages blob. Absent,
// empty, or malformed blobs fall back to DefaultStages.
func ParseCustomStages(raw string) []string {
	if raw == "" {
		return DefaultStages
	}

	var parsed []interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return DefaultStages
	}

	stages := make([]string, 0, len(parsed))
	for _, v := range parsed {
		if s, ok := v.(string); ok && s != "" {
			stages = append(stages, s)
		}
	}
	if len(stages) == 0 {
		return DefaultStages
	}
	return stages
}

func validStage(stages []string, stage string) bool {
	for _, s := range stages {
		if s == stage {
			return true
		}
	}
	return false
}
