// Package protocol lists the Pantos protocol versions the client library can speak and
// maps each of them to the on-chain contract revision it has to use.
package protocol

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"
)

var ErrUnsupportedVersion = errors.New("unsupported protocol version")

// SigningScheme identifies how a transfer authorization is hashed before it is signed.
type SigningScheme int

const (
	// SchemeLegacyKeccak hashes the tightly packed request fields with keccak256 and signs the
	// digest as an EIP-191 personal message.
	SchemeLegacyKeccak SigningScheme = iota
	// SchemeEIP712 signs the request as EIP-712 typed data.
	SchemeEIP712
)

func (s SigningScheme) String() string {
	switch s {
	case SchemeLegacyKeccak:
		return "legacy-keccak"
	case SchemeEIP712:
		return "eip712"
	default:
		return fmt.Sprintf("SigningScheme(%d)", int(s))
	}
}

var (
	V0_1_0 = semver.MustParse("0.1.0")
	V0_2_0 = semver.MustParse("0.2.0")
)

// supported is kept in ascending order.
var supported = []*semver.Version{V0_1_0, V0_2_0}

// SupportedVersions returns all supported protocol versions in ascending order.
func SupportedVersions() []*semver.Version {
	return slices.Clone(supported)
}

// LatestVersion returns the highest supported protocol version.
func LatestVersion() *semver.Version {
	return supported[len(supported)-1]
}

// IsSupported reports whether v is one of the supported protocol versions.
func IsSupported(v *semver.Version) bool {
	if v == nil {
		return false
	}

	return slices.ContainsFunc(supported, func(s *semver.Version) bool {
		return s.Equal(v)
	})
}

// Parse parses a protocol version string and checks that it is supported.
func Parse(s string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("invalid protocol version %q: %w", s, err)
	}
	if !IsSupported(v) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}

	return v, nil
}

// Resolve returns v if it is supported, or the latest supported version if v is nil.
func Resolve(v *semver.Version) (*semver.Version, error) {
	if v == nil {
		return LatestVersion(), nil
	}
	if !IsSupported(v) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}

	return v, nil
}

// Scheme returns the signing scheme used by the contracts of protocol version v.
// The 0.1 contracts verify a packed keccak digest, every later version verifies typed data.
func Scheme(v *semver.Version) SigningScheme {
	if v.Major() == 0 && v.Minor() < 2 {
		return SchemeLegacyKeccak
	}

	return SchemeEIP712
}

// DomainVersion returns the EIP-712 domain version string for v, which is its major version.
func DomainVersion(v *semver.Version) string {
	return fmt.Sprintf("%d", v.Major())
}
