package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintKeyOrderIndependent(t *testing.T) {
	a := map[string]interface{}{"kind": "democracy-started", "who": "alice", "amount": 5}
	b := map[string]interface{}{"amount": 5, "who": "alice", "kind": "democracy-started"}

	require.Equal(t,
		Fingerprint(10, a, NetworkSubstrate, "edgeware"),
		Fingerprint(10, b, NetworkSubstrate, "edgeware"))
}

func TestFingerprintIgnoresScalarType(t *testing.T) {
	// a JSON round-trip turns ints into float64s; the hash must not care
	asInt := map[string]interface{}{"index": 1, "enabled": true}
	asFloat := map[string]interface{}{"index": float64(1), "enabled": true}
	asString := map[string]interface{}{"index": "1", "enabled": true}

	require.Equal(t,
		Fingerprint(10, asInt, NetworkSubstrate, "edgeware"),
		Fingerprint(10, asFloat, NetworkSubstrate, "edgeware"))
	require.Equal(t,
		Fingerprint(10, asInt, NetworkSubstrate, "edgeware"),
		Fingerprint(10, asString, NetworkSubstrate, "edgeware"))
}

func TestFingerprintDistinguishesEvents(t *testing.T) {
	data := map[string]interface{}{"kind": "democracy-started"}

	base := Fingerprint(10, data, NetworkSubstrate, "edgeware")
	require.NotEqual(t, base, Fingerprint(11, data, NetworkSubstrate, "edgeware"))
	require.NotEqual(t, base, Fingerprint(10, data, NetworkCompound, "edgeware"))
	require.NotEqual(t, base, Fingerprint(10, data, NetworkSubstrate, "kusama"))
	require.NotEqual(t, base,
		Fingerprint(10, map[string]interface{}{"kind": "democracy-passed"}, NetworkSubstrate, "edgeware"))
}

func TestFingerprintNestedStructures(t *testing.T) {
	a := map[string]interface{}{
		"kind": "treasury-proposed",
		"nested": map[string]interface{}{
			"list": []interface{}{1, "two", nil},
		},
	}
	b := map[string]interface{}{
		"nested": map[string]interface{}{
			"list": []interface{}{float64(1), "two", nil},
		},
		"kind": "treasury-proposed",
	}
	require.Equal(t,
		Fingerprint(1, a, NetworkSubstrate, "edgeware"),
		Fingerprint(1, b, NetworkSubstrate, "edgeware"))

	// element order within arrays is significant
	c := map[string]interface{}{
		"kind": "treasury-proposed",
		"nested": map[string]interface{}{
			"list": []interface{}{"two", 1, nil},
		},
	}
	require.NotEqual(t,
		Fingerprint(1, a, NetworkSubstrate, "edgeware"),
		Fingerprint(1, c, NetworkSubstrate, "edgeware"))
}
