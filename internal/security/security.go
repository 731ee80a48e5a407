// Package security implements the optional policy-decision boundary spec
// §9's open question resolves to: "a policy-decision interface
// check_create_participant / check_remote_participant /
// check_local_endpoint / check_remote_endpoint returning allow/deny +
// derived permissions." No MSECPLUG/NSECPLUG backend is implemented —
// those stay behind the policy-decision boundary as
// an external collaborator ("a policy decision function"); this package is
// the boundary they would plug into.
package security

import (
	"crypto/tls"
	"crypto/x509"

	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

// Permissions is the derived grant a policy decision carries back — which
// partitions, topics and operations a participant/endpoint may use.
// Permissive's Allow decisions set AllowWrite and AllowRead and leave both
// lists empty.
type Permissions struct {
	AllowedPartitions []string
	AllowedTopics     []string
	AllowWrite        bool
	AllowRead         bool
}

// Decision is the allow/deny verdict a Decider returns for one check.
type Decision struct {
	Allow       bool
	Reason      string
	Permissions Permissions
}

func deny(reason string) Decision { return Decision{Allow: false, Reason: reason} }

func allowAll() Decision {
	return Decision{Allow: true, Permissions: Permissions{AllowWrite: true, AllowRead: true}}
}

// Decider is the security policy boundary: four checks mirroring the
// classic DDS-security plugin entry points ("security is
// conditionally compiled with two different plugin back-ends... this
// specification deliberately leaves security as an optional boundary."
type Decider interface {
	// CheckCreateParticipant authorizes this process creating a local
	// participant with the given identity credential (nil if security is
	// disabled for this domain).
	CheckCreateParticipant(domainID uint32, identity *x509.Certificate) Decision
	// CheckRemoteParticipant authorizes accepting a discovered remote
	// participant's SPDP announcement, given its presented identity (nil
	// if it announced none).
	CheckRemoteParticipant(domainID uint32, peer guid.GuidPrefix, identity *x509.Certificate) Decision
	// CheckLocalEndpoint authorizes creating a local writer/reader on
	// topicName with the given QoS (partition in particular).
	CheckLocalEndpoint(topicName string, isWriter bool, policies qos.Policies) Decision
	// CheckRemoteEndpoint authorizes matching against a remote endpoint
	// discovered via SEDP.
	CheckRemoteEndpoint(topicName string, peer guid.GuidPrefix, isWriter bool, policies qos.Policies) Decision
}

// Permissive is the default Decider when no security plugin is configured:
// every check is allowed unconditionally, matching a domain with security
// disabled.
type Permissive struct{}

func (Permissive) CheckCreateParticipant(uint32, *x509.Certificate) Decision      { return allowAll() }
func (Permissive) CheckRemoteParticipant(uint32, guid.GuidPrefix, *x509.Certificate) Decision {
	return allowAll()
}
func (Permissive) CheckLocalEndpoint(string, bool, qos.Policies) Decision { return allowAll() }
func (Permissive) CheckRemoteEndpoint(string, guid.GuidPrefix, bool, qos.Policies) Decision {
	return allowAll()
}

// DenyAll is the test double exercising the opposite boundary: every check
// is refused, so callers can verify their code paths correctly refuse to
// proceed rather than silently ignoring a Decider.
type DenyAll struct{ Reason string }

func (d DenyAll) reason() string {
	if d.Reason == "" {
		return "security: denied by DenyAll test double"
	}
	return d.Reason
}

func (d DenyAll) CheckCreateParticipant(uint32, *x509.Certificate) Decision { return deny(d.reason()) }
func (d DenyAll) CheckRemoteParticipant(uint32, guid.GuidPrefix, *x509.Certificate) Decision {
	return deny(d.reason())
}
func (d DenyAll) CheckLocalEndpoint(string, bool, qos.Policies) Decision { return deny(d.reason()) }
func (d DenyAll) CheckRemoteEndpoint(string, guid.GuidPrefix, bool, qos.Policies) Decision {
	return deny(d.reason())
}

// CredentialLoader loads an X.509 identity (and validates a peer's
// certificate) for a Decider backed by real credentials, grounded on the
// golib certificates package
// loader/cipher/curve selection shape, narrowed here to just what a DDS
// security plugin needs: an identity cert+key pair and a trust pool to
// validate peers against.
type CredentialLoader struct {
	Identity *tls.Certificate
	Trust    *x509.CertPool
}

// LoadIdentity parses a PEM certificate+key pair into the loader's
// Identity field.
func (c *CredentialLoader) LoadIdentity(certPEM, keyPEM []byte) error {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return err
	}
	c.Identity = &cert
	return nil
}

// TrustPEM adds a PEM-encoded CA certificate to the trust pool peers are
// validated against.
func (c *CredentialLoader) TrustPEM(caPEM []byte) bool {
	if c.Trust == nil {
		c.Trust = x509.NewCertPool()
	}
	return c.Trust.AppendCertsFromPEM(caPEM)
}

// Validate checks peer against the accumulated trust pool.
func (c *CredentialLoader) Validate(peer *x509.Certificate) error {
	_, err := peer.Verify(x509.VerifyOptions{Roots: c.Trust})
	return err
}
