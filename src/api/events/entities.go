package events

// Supported networks
const (
	NetworkSubstrate = "substrate"
	NetworkCompound  = "compound"
	NetworkAave      = "aave"
	NetworkMoloch    = "moloch"
	NetworkCosmos    = "cosmos"
)

// entityByKind maps (network, event kind) to the governance entity the
// event belongs to. Events whose kind has no entry here never get a
// persisted entity and are dropped before the duplicate check.
var entityByKind = map[string]map[string]string{
	NetworkSubstrate: {
		"democracy-proposed":       "democracy-proposal",
		"democracy-seconded":       "democracy-proposal",
		"democracy-tabled":         "democracy-proposal",
		"democracy-started":        "democracy-referendum",
		"democracy-passed":         "democracy-referendum",
		"democracy-not-passed":     "democracy-referendum",
		"democracy-cancelled":      "democracy-referendum",
		"democracy-executed":       "democracy-referendum",
		"vote-delegated":           "democracy-referendum",
		"treasury-proposed":        "treasury-proposal",
		"treasury-awarded":         "treasury-proposal",
		"treasury-rejected":        "treasury-proposal",
		"collective-proposed":      "collective-proposal",
		"collective-voted":         "collective-proposal",
		"collective-approved":      "collective-proposal",
		"collective-disapproved":   "collective-proposal",
		"collective-executed":      "collective-proposal",
		"treasury-bounty-proposed": "treasury-bounty",
		"treasury-bounty-awarded":  "treasury-bounty",
		"tip-proposed":             "tip-proposal",
		"tip-voted":                "tip-proposal",
		"tip-closing":              "tip-proposal",
		"tip-closed":               "tip-proposal",
		"tip-retracted":            "tip-proposal",
	},
	NetworkCompound: {
		"proposal-created":  "proposal",
		"proposal-queued":   "proposal",
		"proposal-executed": "proposal",
		"proposal-canceled": "proposal",
		"vote-cast":         "proposal",
	},
	NetworkAave: {
		"proposal-created":  "proposal",
		"proposal-queued":   "proposal",
		"proposal-executed": "proposal",
		"proposal-canceled": "proposal",
		"vote-emitted":      "proposal",
	},
	NetworkMoloch: {
		"submit-proposal":  "proposal",
		"submit-vote":      "proposal",
		"process-proposal": "proposal",
		"abort":            "proposal",
	},
	NetworkCosmos: {
		"msg-submit-proposal": "proposal",
		"msg-vote":            "proposal",
		"msg-deposit":         "proposal",
	},
}

// EventToEntity resolves the persisted entity type for an event kind, if
// one exists.
func EventToEntity(network, kind string) (string, bool) {
	kinds, ok := entityByKind[network]
	if !ok {
		return "", false
	}
	entity, ok := kinds[kind]
	return entity, ok
}
