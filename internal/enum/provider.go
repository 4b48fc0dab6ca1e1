package enum

type ProviderKind string

const (
	ProviderGoogle  ProviderKind = "google"
	ProviderOutlook ProviderKind = "outlook"
	ProviderIMAP    ProviderKind = "imap"
)

func (t ProviderKind) String() string {
	return string(t)
}

type ConnectionSecurity string

const (
	ConnectionSecurityNone     ConnectionSecurity = "none"
	ConnectionSecuritySSL      ConnectionSecurity = "ssl"
	ConnectionSecurityTLS      ConnectionSecurity = "tls"
	ConnectionSecurityStartTLS ConnectionSecurity = "startTLS"
)

func (t ConnectionSecurity) String() string {
	return string(t)
}
