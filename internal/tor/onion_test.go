package tor

import (
	"errors"
	"strings"
	"testing"
)

// Addresses derived from deterministic public keys. They do not belong to
// any real hidden service.
const (
	// all-zero 32-byte public key
	testOnionV3Addr1 = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaam2dqd.onion"
	// public key 0, 1, 2, ..., 31
	testOnionV3Addr2 = "aaaqeayeaudaocajbifqydiob4ibceqtcqkrmfyydenbwha5dyp3kead.onion"
)

func TestIsValidV3Address(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		address  string
		expected bool
	}{
		{"zero key address", testOnionV3Addr1, true},
		{"sequential key address", testOnionV3Addr2, true},
		{"uppercase", strings.ToUpper(strings.TrimSuffix(testOnionV3Addr1, ".onion")) + ".onion", true},
		{"v2 address", "facebookcorewwwi.onion", false},
		{"too short", "abc.onion", false},
		{"too long", strings.Repeat("a", 57) + ".onion", false},
		{"missing suffix", strings.Repeat("a", 56), false},
		{"invalid base32 digit", strings.Repeat("1", 56) + ".onion", false},
		{"empty", "", false},
		{"only suffix", ".onion", false},
		{"wrong version", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaam2dqe.onion", false},
		{"subdomain is not an address", "www." + testOnionV3Addr1, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := IsValidV3Address(tc.address); got != tc.expected {
				t.Errorf("IsValidV3Address(%q) = %v, expected %v", tc.address, got, tc.expected)
			}
		})
	}
}

func TestClassifyHost(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		host     string
		expected HostKind
	}{
		{"v3", testOnionV3Addr1, HostV3},
		{"v3 with subdomain", "www." + testOnionV3Addr2, HostV3},
		{"v3 uppercase", strings.ToUpper(testOnionV3Addr2), HostV3},
		{"v3 bad checksum", strings.Repeat("a", 56) + ".onion", HostV3BadChecksum},
		{"v2", "facebookcorewwwi.onion", HostV2},
		{"other onion", "example.onion", HostOtherOnion},
		{"clearnet", "example.com", HostNotOnion},
		{"empty", "", HostNotOnion},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := ClassifyHost(tc.host); got != tc.expected {
				t.Errorf("ClassifyHost(%q) = %v, expected %v", tc.host, got, tc.expected)
			}
		})
	}
}

func TestHostKindString(t *testing.T) {
	t.Parallel()

	testCases := map[HostKind]string{
		HostNotOnion:      "not onion",
		HostV3:            "v3",
		HostV3BadChecksum: "v3 (bad checksum)",
		HostV2:            "v2 (deprecated)",
		HostOtherOnion:    "unrecognized onion",
		HostKind(42):      "unknown",
	}
	for kind, expected := range testCases {
		if got := kind.String(); got != expected {
			t.Errorf("expected %q, got %q", expected, got)
		}
	}
}

func TestV3AddressFromPublicKey(t *testing.T) {
	t.Parallel()

	t.Run("rejects keys of the wrong length", func(t *testing.T) {
		t.Parallel()

		for _, length := range []int{0, 16, 31, 33, 64} {
			_, err := V3AddressFromPublicKey(make([]byte, length))
			if !errors.Is(err, ErrInvalidPublicKey) {
				t.Errorf("expected ErrInvalidPublicKey for length %d, got %v", length, err)
			}
		}
	})

	t.Run("derives known addresses", func(t *testing.T) {
		t.Parallel()

		sequential := make([]byte, 32)
		for i := range sequential {
			sequential[i] = byte(i)
		}

		testCases := []struct {
			name     string
			pubkey   []byte
			expected string
		}{
			{"zero key", make([]byte, 32), testOnionV3Addr1},
			{"sequential key", sequential, testOnionV3Addr2},
		}
		for _, tc := range testCases {
			address, err := V3AddressFromPublicKey(tc.pubkey)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tc.name, err)
			}
			if address != tc.expected {
				t.Errorf("%s: expected %s, got %s", tc.name, tc.expected, address)
			}
			if !IsValidV3Address(address) {
				t.Errorf("%s: derived address %s does not validate", tc.name, address)
			}
		}
	})
}
