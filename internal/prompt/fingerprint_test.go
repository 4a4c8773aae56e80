package prompt

import "testing"

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("RPT-1", "CTX-1")
	b := Fingerprint("RPT-1", "CTX-1")
	if a != b {
		t.Errorf("same parts produced different fingerprints: %s vs %s", a, b)
	}
	for _, c := range a {
		if c < '0' || c > '9' {
			t.Fatalf("fingerprint is not decimal: %q", a)
		}
	}
}

func TestFingerprintSeparatesParts(t *testing.T) {
	if Fingerprint("ab", "c") == Fingerprint("a", "bc") {
		t.Error("part boundaries must affect the fingerprint")
	}
	if Fingerprint("a", "b") == Fingerprint("b", "a") {
		t.Error("part order must affect the fingerprint")
	}
}

func TestAlertFingerprintIgnoresRelationOrder(t *testing.T) {
	a := AlertFingerprint("discord", false, "2025-03-10", []string{"r1", "r2", "r3"})
	b := AlertFingerprint("discord", false, "2025-03-10", []string{"r3", "r1", "r2"})
	if a != b {
		t.Errorf("relation order changed the fingerprint: %s vs %s", a, b)
	}

	c := AlertFingerprint("discord", true, "2025-03-10", []string{"r1", "r2", "r3"})
	if a == c {
		t.Error("whole-city flag must affect the fingerprint")
	}

	d := AlertFingerprint("teams", false, "2025-03-10", []string{"r1", "r2", "r3"})
	if a == d {
		t.Error("requester must affect the fingerprint")
	}
}

func TestAlertFingerprintDoesNotMutateInput(t *testing.T) {
	ids := []string{"z", "a", "m"}
	AlertFingerprint("discord", false, "2025-03-10", ids)
	if ids[0] != "z" || ids[1] != "a" || ids[2] != "m" {
		t.Errorf("input slice was mutated: %v", ids)
	}
}
