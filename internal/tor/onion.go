package tor

import (
	"encoding/base32"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Onion address constants.
const (
	// OnionV3Version is the version byte for v3 onion addresses.
	OnionV3Version = 0x03

	// OnionSuffix is the common suffix for all onion addresses.
	OnionSuffix = ".onion"
)

// ErrInvalidPublicKey is returned when a v3 address is derived from a key
// that is not 32 bytes long.
var ErrInvalidPublicKey = errors.New("ed25519 public key must be 32 bytes")

// HostKind classifies a hostname.
type HostKind int

const (
	// HostNotOnion is a host outside the .onion TLD.
	HostNotOnion HostKind = iota
	// HostV3 is a v3 onion address with a valid checksum.
	HostV3
	// HostV3BadChecksum looks like a v3 address but fails verification.
	HostV3BadChecksum
	// HostV2 is a deprecated v2 onion address.
	HostV2
	// HostOtherOnion ends in .onion but matches neither format.
	HostOtherOnion
)

// String returns a human-readable name of the kind.
func (k HostKind) String() string {
	switch k {
	case HostNotOnion:
		return "not onion"
	case HostV3:
		return "v3"
	case HostV3BadChecksum:
		return "v3 (bad checksum)"
	case HostV2:
		return "v2 (deprecated)"
	case HostOtherOnion:
		return "unrecognized onion"
	default:
		return "unknown"
	}
}

// The last label before .onion; subdomains of an onion service are allowed.
var (
	onionV3Pattern = regexp.MustCompile(`(?:^|\.)([a-z2-7]{56})\.onion$`)
	onionV2Pattern = regexp.MustCompile(`(?:^|\.)([a-z2-7]{16})\.onion$`)
)

// checksumPrefix is the prefix used in v3 onion address checksum calculation.
var checksumPrefix = []byte(".onion checksum")

// ClassifyHost reports what kind of onion address host is.
func ClassifyHost(host string) HostKind {
	host = strings.ToLower(host)
	if !strings.HasSuffix(host, OnionSuffix) {
		return HostNotOnion
	}
	if m := onionV3Pattern.FindStringSubmatch(host); m != nil {
		if IsValidV3Address(m[1] + OnionSuffix) {
			return HostV3
		}
		return HostV3BadChecksum
	}
	if onionV2Pattern.MatchString(host) {
		return HostV2
	}
	return HostOtherOnion
}

// IsValidV3Address checks format and checksum of a v3 onion address.
// The address must include the ".onion" suffix.
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)
	m := onionV3Pattern.FindStringSubmatch(address)
	if m == nil || m[0] != address {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(m[1]))
	if err != nil {
		return false
	}

	// 32 bytes ed25519 public key, 2 bytes checksum, 1 byte version.
	if len(decoded) != 35 {
		return false
	}
	pubkey := decoded[:32]
	checksum := decoded[32:34]
	version := decoded[34]

	if version != OnionV3Version {
		return false
	}

	expected := computeV3Checksum(pubkey, version)
	return checksum[0] == expected[0] && checksum[1] == expected[1]
}

// computeV3Checksum returns the first 2 bytes of
// SHA3-256(".onion checksum" || pubkey || version).
func computeV3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)

	hash := sha3.Sum256(data)
	return hash[:2]
}

// V3AddressFromPublicKey derives the v3 onion address of an ed25519
// public key.
func V3AddressFromPublicKey(pubkey []byte) (string, error) {
	if len(pubkey) != 32 {
		return "", ErrInvalidPublicKey
	}

	data := make([]byte, 35)
	copy(data[:32], pubkey)
	copy(data[32:34], computeV3Checksum(pubkey, OnionV3Version))
	data[34] = OnionV3Version

	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + OnionSuffix, nil
}
